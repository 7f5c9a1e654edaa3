package proctoring

import (
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// Score maps the detections inside the window ending at now to a normalized
// risk score and level:
//
//	sum(weight(severity) * confidence) / (n * weight(critical))
//
// clamped to [0,1]. An empty window scores 0 (low). The result depends only
// on the arguments.
func Score(history []models.Detection, window time.Duration, now time.Time) (float64, models.RiskLevel) {
	cutoff := now.Add(-window)

	var total float64
	var n int
	for _, d := range history {
		if !d.Timestamp.After(cutoff) {
			continue
		}
		total += d.Severity.Weight() * d.Confidence
		n++
	}
	if n == 0 {
		return 0, models.RiskLow
	}

	score := total / (float64(n) * models.SeverityCritical.Weight())
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, RiskLevelFor(score)
}

func RiskLevelFor(score float64) models.RiskLevel {
	switch {
	case score < 0.2:
		return models.RiskLow
	case score < 0.5:
		return models.RiskMedium
	case score < 0.8:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}
