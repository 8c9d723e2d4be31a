package engine

import (
	"time"

	"sleepsafe/internal/model"
)

const hourlyPeriod = "last_hour"

// Hourly computes the trailing-window summary. Only events strictly newer
// than now-window count; an event sitting exactly on the boundary is out.
// An empty window reports just the count and period, nothing else.
func Hourly(events []model.DetectionEvent, now time.Time, window time.Duration) model.HourlySummary {
	if window <= 0 {
		window = time.Hour
	}
	cutoff := now.Add(-window)
	recent := make([]model.DetectionEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.After(cutoff) {
			recent = append(recent, ev)
		}
	}

	summary := model.HourlySummary{Period: hourlyPeriod}
	if len(recent) == 0 {
		return summary
	}

	stats := Snapshot(recent)
	alertRate := stats.DrowsinessRate
	summary.EventsCount = stats.TotalEvents
	summary.DrowsyCount = &stats.DrowsyEvents
	summary.AverageEAR = &stats.AverageEAR
	summary.AverageDurationMS = &stats.AverageDurationMS
	summary.DrowsinessRate = &stats.DrowsinessRate
	summary.AlertRate = &alertRate
	summary.SeverityDistribution = stats.SeverityDistribution
	return summary
}
