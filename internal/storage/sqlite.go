package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"sleepsafe/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:sleepsafe.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS detection_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			ear_value REAL NOT NULL,
			is_drowsy INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			severity TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detection_events_ts ON detection_events(ts)`,
		`CREATE TABLE IF NOT EXISTS model_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			model_name TEXT NOT NULL,
			accuracy REAL NOT NULL,
			precision_score REAL NOT NULL,
			recall_score REAL NOT NULL,
			f1_score REAL,
			additional_metrics TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS system_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_system_events_type ON system_events(event_type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveEvent(ctx context.Context, ev model.DetectionEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detection_events (ts, ear_value, is_drowsy, duration_ms, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UTC(),
		ev.EARValue,
		ev.IsDrowsy,
		ev.DurationMS,
		string(ev.Severity),
		nowUTC(),
	)
	return err
}

func (s *sqliteStore) SaveModelMetrics(ctx context.Context, modelName string, m model.ModelMetrics, extra map[string]any) error {
	if s.db == nil {
		return nil
	}
	if modelName == "" {
		modelName = "drowsiness_detector"
	}
	var f1 any
	if m.F1Score != nil {
		f1 = *m.F1Score
	}
	var extraJSON any
	if len(extra) > 0 {
		extraJSON = encodeJSON(extra)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_metrics (ts, model_name, accuracy, precision_score, recall_score, f1_score, additional_metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nowUTC(),
		modelName,
		m.Accuracy,
		m.Precision,
		m.Recall,
		f1,
		extraJSON,
		nowUTC(),
	)
	return err
}

func (s *sqliteStore) SaveSystemEvent(ctx context.Context, eventType, severity, message string, metadata map[string]any) error {
	if s.db == nil {
		return nil
	}
	var metaJSON any
	if len(metadata) > 0 {
		metaJSON = encodeJSON(metadata)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_events (ts, event_type, severity, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nowUTC(),
		eventType,
		severity,
		message,
		metaJSON,
		nowUTC(),
	)
	return err
}
