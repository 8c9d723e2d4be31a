package engine

import (
	"time"

	"sleepsafe/internal/model"
)

// Dashboard combines the full-cache statistics, the trailing-window summary
// and the derived system status into one structure. Nothing here is cached;
// each call recomputes from the events it is handed.
func Dashboard(events []model.DetectionEvent, now time.Time, window time.Duration) model.DashboardSummary {
	stats := Snapshot(events)
	return model.DashboardSummary{
		Overall:   stats,
		LastHour:  Hourly(events, now, window),
		Status:    systemStatus(stats),
		Timestamp: now,
	}
}

// systemStatus is a health judgment over the whole cache. This is the one
// place the critical label is produced; it is distinct from the per-event
// severity vocabulary even though the word is shared.
func systemStatus(stats model.Statistics) model.SystemStatus {
	if stats.TotalEvents == 0 {
		return model.StatusIdle
	}
	switch {
	case stats.DrowsinessRate > 50:
		return model.StatusCritical
	case stats.DrowsinessRate > 25:
		return model.StatusWarning
	default:
		return model.StatusNormal
	}
}
