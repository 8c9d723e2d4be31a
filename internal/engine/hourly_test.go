package engine

import (
	"testing"
	"time"

	"sleepsafe/internal/model"
)

func TestHourlyEmptyWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []model.DetectionEvent{
		makeEvent(now.Add(-2*time.Hour), 0.1, true, 3000),
		makeEvent(now.Add(-3*time.Hour), 0.1, true, 3000),
	}
	summary := Hourly(events, now, time.Hour)
	if summary.EventsCount != 0 {
		t.Fatalf("events count: got %d, want 0", summary.EventsCount)
	}
	if summary.Period != "last_hour" {
		t.Fatalf("period: got %q", summary.Period)
	}
	if summary.DrowsyCount != nil || summary.AverageEAR != nil || summary.AverageDurationMS != nil ||
		summary.DrowsinessRate != nil || summary.AlertRate != nil || summary.SeverityDistribution != nil {
		t.Fatalf("empty window must omit aggregate fields: %+v", summary)
	}
}

func TestHourlyBoundaryExcluded(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []model.DetectionEvent{
		makeEvent(now.Add(-time.Hour), 0.1, true, 3000),
	}
	if summary := Hourly(events, now, time.Hour); summary.EventsCount != 0 {
		t.Fatalf("event exactly on the window boundary must be excluded")
	}
	events[0].Timestamp = now.Add(-time.Hour + time.Second)
	if summary := Hourly(events, now, time.Hour); summary.EventsCount != 1 {
		t.Fatalf("event just inside the window must be included")
	}
}

func TestHourlyAggregates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []model.DetectionEvent{
		makeEvent(now.Add(-5*time.Hour), 0.05, true, 9000),
		makeEvent(now.Add(-10*time.Minute), 0.3, false, 100),
		makeEvent(now.Add(-5*time.Minute), 0.1, true, 1500),
	}
	summary := Hourly(events, now, time.Hour)
	if summary.EventsCount != 2 {
		t.Fatalf("events count: got %d, want 2", summary.EventsCount)
	}
	if summary.DrowsyCount == nil || *summary.DrowsyCount != 1 {
		t.Fatalf("drowsy count: %+v", summary.DrowsyCount)
	}
	if summary.AverageEAR == nil || *summary.AverageEAR != 0.2 {
		t.Fatalf("average ear: %+v", summary.AverageEAR)
	}
	if summary.DrowsinessRate == nil || *summary.DrowsinessRate != 50 {
		t.Fatalf("drowsiness rate: %+v", summary.DrowsinessRate)
	}
	if summary.AlertRate == nil || *summary.AlertRate != *summary.DrowsinessRate {
		t.Fatalf("alert rate must match drowsiness rate: %+v vs %+v", summary.AlertRate, summary.DrowsinessRate)
	}
	if summary.SeverityDistribution[model.SeverityNone] != 1 || summary.SeverityDistribution[model.SeverityLow] != 1 {
		t.Fatalf("severity distribution: %+v", summary.SeverityDistribution)
	}
}
