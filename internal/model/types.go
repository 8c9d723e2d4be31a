package model

import "time"

type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	// critical is part of the severity vocabulary but is never assigned to a
	// single event; only the dashboard status judgment reaches this level.
	SeverityCritical Severity = "critical"
)

type SystemStatus string

const (
	StatusIdle     SystemStatus = "idle"
	StatusNormal   SystemStatus = "normal"
	StatusWarning  SystemStatus = "warning"
	StatusCritical SystemStatus = "critical"
)

// TelemetryReading is a raw, boundary-validated reading before severity has
// been assigned. A zero Timestamp means "use processing time".
type TelemetryReading struct {
	Timestamp  time.Time `json:"timestamp"`
	EARValue   float64   `json:"ear_value"`
	IsDrowsy   bool      `json:"is_drowsy"`
	DurationMS int       `json:"duration_ms"`
}

type DetectionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EARValue   float64   `json:"ear_value"`
	IsDrowsy   bool      `json:"is_drowsy"`
	DurationMS int       `json:"duration_ms"`
	Severity   Severity  `json:"severity"`
}

type Statistics struct {
	TotalEvents          int              `json:"total_events"`
	DrowsyEvents         int              `json:"drowsy_events"`
	AverageEAR           float64          `json:"average_ear"`
	AverageDurationMS    float64          `json:"average_duration_ms"`
	DrowsinessRate       float64          `json:"drowsiness_rate"`
	SeverityDistribution map[Severity]int `json:"severity_distribution"`
}

// HourlySummary reports aggregates over the trailing window. When the window
// contains no events only events_count and period are emitted; the remaining
// fields are omitted rather than zero-filled.
type HourlySummary struct {
	Period               string           `json:"period"`
	EventsCount          int              `json:"events_count"`
	DrowsyCount          *int             `json:"drowsy_count,omitempty"`
	AverageEAR           *float64         `json:"average_ear,omitempty"`
	AverageDurationMS    *float64         `json:"average_duration_ms,omitempty"`
	DrowsinessRate       *float64         `json:"drowsiness_rate,omitempty"`
	AlertRate            *float64         `json:"alert_rate,omitempty"`
	SeverityDistribution map[Severity]int `json:"severity_distribution,omitempty"`
}

type DashboardSummary struct {
	Overall   Statistics    `json:"overall"`
	LastHour  HourlySummary `json:"last_hour"`
	Status    SystemStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

type ModelMetrics struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1Score   *float64 `json:"f1_score,omitempty"`
}
