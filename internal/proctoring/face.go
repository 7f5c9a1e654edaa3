package proctoring

import (
	"context"
	"fmt"
	"math"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// facePresenceDetector covers face absence, multiple faces and movement away
// from the baseline position. It owns faceAbsenceCount, multipleFaceCount
// and baseline.
type facePresenceDetector struct {
	model FaceDetector
	cfg   Config
}

func (d *facePresenceDetector) name() string { return "face_presence" }

func (d *facePresenceDetector) detect(ctx context.Context, in frameInput, s *session) ([]models.Detection, error) {
	if d.model == nil {
		return nil, nil
	}

	faces, err := d.model.DetectFaces(ctx, in.frame)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	var results []models.Detection

	if len(faces) == 0 {
		s.multipleFaceCount = 0
		s.faceAbsenceCount++
		if s.faceAbsenceCount > d.cfg.FaceAbsenceThreshold {
			results = append(results, models.Detection{
				Timestamp:  in.now,
				Kind:       models.KindFaceAbsence,
				Severity:   models.SeverityHigh,
				Confidence: 1.0,
				Message:    "Candidate not visible in frame",
				Details: map[string]interface{}{
					"duration":  s.faceAbsenceCount,
					"threshold": d.cfg.FaceAbsenceThreshold,
				},
			})
		}
		return results, nil
	}
	s.faceAbsenceCount = 0

	if len(faces) > 1 {
		s.multipleFaceCount++
		if s.multipleFaceCount > d.cfg.MultipleFaceThreshold {
			results = append(results, models.Detection{
				Timestamp:  in.now,
				Kind:       models.KindMultipleFaces,
				Severity:   models.SeverityCritical,
				Confidence: 0.9,
				Message:    fmt.Sprintf("Multiple faces detected: %d", len(faces)),
				Details: map[string]interface{}{
					"face_count": len(faces),
					"duration":   s.multipleFaceCount,
				},
			})
		}
		return results, nil
	}
	s.multipleFaceCount = 0

	current := positionOf(faces[0])
	if s.baseline == nil {
		// The baseline is set once per session and never re-centred.
		s.baseline = &current
		return results, nil
	}

	change := positionChange(*s.baseline, current)
	if change > d.cfg.MovementThreshold {
		results = append(results, models.Detection{
			Timestamp:  in.now,
			Kind:       models.KindSignificantMovement,
			Severity:   models.SeverityMedium,
			Confidence: 0.7,
			Message:    "Significant position change detected",
			Details: map[string]interface{}{
				"position_change": change,
				"threshold":       d.cfg.MovementThreshold,
			},
		})
	}
	return results, nil
}

func positionOf(box FaceBox) facePosition {
	return facePosition{
		X:      box.XMin + box.Width/2,
		Y:      box.YMin + box.Height/2,
		Width:  box.Width,
		Height: box.Height,
	}
}

// positionChange is the distance between two face centres in percent of the frame.
func positionChange(baseline, current facePosition) float64 {
	return math.Hypot(current.X-baseline.X, current.Y-baseline.Y) * 100
}
