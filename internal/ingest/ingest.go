package ingest

import (
	"context"
	"log/slog"
	"time"

	"sleepsafe/internal/model"
)

func SendNonBlocking(ctx context.Context, out chan<- model.TelemetryReading, r model.TelemetryReading, logger *slog.Logger) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("telemetry channel full, dropping reading", "timestamp", r.Timestamp)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
