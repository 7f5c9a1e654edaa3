package proctoring

import (
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const (
	reportWarnings        = 20
	minCriticalEvents     = 5
	fallbackCriticalLimit = 10
)

// buildReport summarizes a stopped session. The caller holds s.mu.
func buildReport(s *session) *models.SessionReport {
	detections := s.history.items()

	duration := s.endedAt.Sub(s.startedAt)
	window := duration
	if window < time.Second {
		window = time.Second
	}
	score, level := Score(detections, window, s.endedAt)

	byType := make(map[string]int)
	bySeverity := make(map[models.Severity]int, len(models.Severities))
	for _, sev := range models.Severities {
		bySeverity[sev] = 0
	}
	for _, d := range detections {
		byType[d.Type()]++
		bySeverity[d.Severity]++
	}

	var avgMs float64
	if s.frameCount > 0 {
		avgMs = float64(s.processingTotal.Microseconds()) / 1000 / float64(s.frameCount)
	}

	return &models.SessionReport{
		Success:             true,
		InterviewID:         s.interviewID,
		StartedAt:           s.startedAt,
		EndedAt:             s.endedAt,
		DurationSeconds:     duration.Seconds(),
		TotalFramesAnalyzed: s.frameCount,
		TotalDetections:     s.totalDetections,
		TotalWarnings:       s.totalWarnings,
		FinalRiskScore:      score,
		RiskLevel:           level,
		DetectionBreakdown:  byType,
		AlertLevelBreakdown: bySeverity,
		CriticalEvents:      criticalEvents(detections),
		Warnings:            s.recentWarnings(reportWarnings),
		AvgProcessingTimeMs: avgMs,
		DegradedFrames:      s.degradedFrames,
	}
}

// criticalEvents picks the critical detections that have a screenshot. When
// there are fewer than five, it falls back to the last ten high or critical
// detections with a screenshot.
func criticalEvents(detections []models.Detection) []models.Detection {
	critical := make([]models.Detection, 0)
	for _, d := range detections {
		if d.Severity == models.SeverityCritical && d.Screenshot != nil {
			critical = append(critical, d)
		}
	}
	if len(critical) >= minCriticalEvents {
		return critical
	}

	warnings := make([]models.Detection, 0)
	for _, d := range detections {
		if d.IsWarning() && d.Screenshot != nil {
			warnings = append(warnings, d)
		}
	}
	if len(warnings) > fallbackCriticalLimit {
		warnings = warnings[len(warnings)-fallbackCriticalLimit:]
	}
	return warnings
}
