package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sleepsafe/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/sleepsafe?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS detection_events (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			ear_value DOUBLE PRECISION NOT NULL,
			is_drowsy BOOLEAN NOT NULL,
			duration_ms INTEGER NOT NULL,
			severity TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detection_events_ts ON detection_events(ts)`,
		`CREATE TABLE IF NOT EXISTS model_metrics (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			model_name TEXT NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL,
			precision_score DOUBLE PRECISION NOT NULL,
			recall_score DOUBLE PRECISION NOT NULL,
			f1_score DOUBLE PRECISION,
			additional_metrics JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS system_events (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
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

func (s *postgresStore) SaveEvent(ctx context.Context, ev model.DetectionEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detection_events (ts, ear_value, is_drowsy, duration_ms, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Timestamp.UTC(),
		ev.EARValue,
		ev.IsDrowsy,
		ev.DurationMS,
		string(ev.Severity),
		nowUTC(),
	)
	return err
}

func (s *postgresStore) SaveModelMetrics(ctx context.Context, modelName string, m model.ModelMetrics, extra map[string]any) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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

func (s *postgresStore) SaveSystemEvent(ctx context.Context, eventType, severity, message string, metadata map[string]any) error {
	if s.db == nil {
		return nil
	}
	var metaJSON any
	if len(metadata) > 0 {
		metaJSON = encodeJSON(metadata)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_events (ts, event_type, severity, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		nowUTC(),
		eventType,
		severity,
		message,
		metaJSON,
		nowUTC(),
	)
	return err
}
