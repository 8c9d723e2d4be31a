package engine

import "sleepsafe/internal/model"

const (
	earOpenThreshold = 0.25
	lowDurationMS    = 2000
	mediumDurationMS = 5000
)

// ClassifySeverity maps a single eye-state reading to its severity label.
// Eyes open enough score none regardless of how long the state persisted.
// Rules are evaluated in order, first match wins.
func ClassifySeverity(earValue float64, durationMS int) model.Severity {
	if earValue > earOpenThreshold {
		return model.SeverityNone
	}
	if durationMS < lowDurationMS {
		return model.SeverityLow
	}
	if durationMS < mediumDurationMS {
		return model.SeverityMedium
	}
	return model.SeverityHigh
}
