package proctoring

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// motionDetector compares each frame with the previous one. It owns prevFrame.
type motionDetector struct {
	cfg Config
}

func (d *motionDetector) name() string { return "motion" }

func (d *motionDetector) detect(_ context.Context, in frameInput, s *session) ([]models.Detection, error) {
	prev := s.prevFrame
	s.prevFrame = in.frame

	if prev == nil || !prev.SameSize(in.frame) {
		return nil, nil
	}

	delta := meanAbsDiff(prev.Pix, in.frame.Pix)
	if delta <= d.cfg.MotionThreshold {
		return nil, nil
	}

	return []models.Detection{{
		Timestamp:  in.now,
		Kind:       models.KindExcessiveMovement,
		Severity:   models.SeverityLow,
		Confidence: 0.6,
		Message:    "Excessive movement detected",
		Details: map[string]interface{}{
			"motion_score": delta,
			"threshold":    d.cfg.MotionThreshold,
		},
	}}, nil
}

// meanAbsDiff is the mean per-channel absolute difference of two equally
// sized rasters.
func meanAbsDiff(a, b []uint8) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum uint64
	for i := range a {
		if a[i] > b[i] {
			sum += uint64(a[i] - b[i])
		} else {
			sum += uint64(b[i] - a[i])
		}
	}
	return float64(sum) / float64(len(a))
}
