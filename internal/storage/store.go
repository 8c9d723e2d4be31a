package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"sleepsafe/internal/config"
	"sleepsafe/internal/model"
)

// Store is the write-behind audit log mirroring events, model metrics and
// system events into durable tables. Nothing in the service reads it back;
// it exists for offline inspection.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveEvent(ctx context.Context, ev model.DetectionEvent) error
	SaveModelMetrics(ctx context.Context, modelName string, m model.ModelMetrics, extra map[string]any) error
	SaveSystemEvent(ctx context.Context, eventType, severity, message string, metadata map[string]any) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Metadata blobs stay opaque: encoded once at the boundary, never inspected.
func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
