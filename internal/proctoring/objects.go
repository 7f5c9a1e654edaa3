package proctoring

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const (
	classPerson    = "person"
	classCellPhone = "cell phone"
	classLaptop    = "laptop"
	classBook      = "book"
)

// objectDetector flags watched objects and more than one person per frame.
// It owns phoneDetectionCount.
type objectDetector struct {
	model ObjectDetector
	cfg   Config
}

func (d *objectDetector) name() string { return "objects" }

func (d *objectDetector) detect(ctx context.Context, in frameInput, s *session) ([]models.Detection, error) {
	if d.model == nil {
		return nil, nil
	}

	boxes, err := d.model.DetectObjects(ctx, in.frame)
	if err != nil {
		return nil, fmt.Errorf("object detection: %w", err)
	}

	var results []models.Detection
	persons := 0
	phoneSeen := false

	for _, box := range boxes {
		if box.Confidence <= d.cfg.ConfidenceThreshold {
			continue
		}
		if box.Class == classPerson {
			persons++
			continue
		}
		if !d.watched(box.Class) {
			continue
		}

		count := 1
		if box.Class == classCellPhone {
			phoneSeen = true
			s.phoneDetectionCount++
			count = s.phoneDetectionCount
		}

		results = append(results, models.Detection{
			Timestamp:   in.now,
			Kind:        models.KindObjectDetected,
			ObjectClass: box.Class,
			Severity:    objectSeverity(box.Class, box.Confidence),
			Confidence:  box.Confidence,
			Message:     "Detected " + box.Class,
			Details: map[string]interface{}{
				"object_class":    box.Class,
				"bbox":            box.BBox[:],
				"detection_count": count,
			},
		})
	}

	if !phoneSeen {
		s.phoneDetectionCount = 0
	}

	if persons > 1 {
		results = append(results, models.Detection{
			Timestamp:  in.now,
			Kind:       models.KindMultiplePersonsDetected,
			Severity:   models.SeverityCritical,
			Confidence: 0.9,
			Message:    fmt.Sprintf("Multiple persons in frame: %d", persons),
			Details: map[string]interface{}{
				"person_count": persons,
			},
		})
	}

	return results, nil
}

func (d *objectDetector) watched(class string) bool {
	for _, c := range d.cfg.WatchedObjects {
		if c == class {
			return true
		}
	}
	return false
}

func objectSeverity(class string, confidence float64) models.Severity {
	switch class {
	case classCellPhone:
		if confidence > 0.8 {
			return models.SeverityCritical
		}
		return models.SeverityHigh
	case classLaptop:
		if confidence > 0.7 {
			return models.SeverityHigh
		}
		return models.SeverityMedium
	case classBook:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
