package engine

import (
	"math"

	"sleepsafe/internal/model"
)

// Snapshot computes point-in-time aggregate statistics over a sequence of
// events, normally the full cache contents. Empty input yields zero counts,
// zero rates and an empty histogram.
func Snapshot(events []model.DetectionEvent) model.Statistics {
	stats := model.Statistics{
		TotalEvents:          len(events),
		SeverityDistribution: make(map[model.Severity]int),
	}
	if len(events) == 0 {
		return stats
	}
	var earSum, durSum float64
	for _, ev := range events {
		if ev.IsDrowsy {
			stats.DrowsyEvents++
		}
		earSum += ev.EARValue
		durSum += float64(ev.DurationMS)
		stats.SeverityDistribution[ev.Severity]++
	}
	total := float64(stats.TotalEvents)
	stats.AverageEAR = roundTo(earSum/total, 3)
	stats.AverageDurationMS = roundTo(durSum/total, 2)
	stats.DrowsinessRate = roundTo(float64(stats.DrowsyEvents)/total*100, 2)
	return stats
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
