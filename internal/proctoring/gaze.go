package proctoring

import (
	"context"
	"fmt"
	"math"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

var (
	leftEyeLandmarks  = []int{33, 133, 157, 158, 159, 160, 161, 163}
	rightEyeLandmarks = []int{362, 398, 384, 385, 386, 387, 388, 466}
)

// minMeshLandmarks is the landmark count needed to address every eye index.
const minMeshLandmarks = 467

// gazeConfidence is fixed; the geometry gives no calibrated confidence.
const gazeConfidence = 0.7

// gazeDetector estimates where the candidate is looking from face-mesh eye
// landmarks. It owns gazeDeviationCount.
type gazeDetector struct {
	model FaceMesh
	cfg   Config
}

type gazeEstimate struct {
	Direction string
	Deviation float64
	Vector    [2]float64
}

func (d *gazeDetector) name() string { return "gaze" }

func (d *gazeDetector) detect(ctx context.Context, in frameInput, s *session) ([]models.Detection, error) {
	if d.model == nil {
		return nil, nil
	}

	faces, err := d.model.Landmarks(ctx, in.frame)
	if err != nil {
		return nil, fmt.Errorf("face mesh: %w", err)
	}
	// No face leaves the counter where it is; absence is reported elsewhere.
	if len(faces) == 0 {
		return nil, nil
	}

	gaze, err := estimateGaze(faces[0], in.frame.Width, in.frame.Height)
	if err != nil {
		return nil, err
	}

	if gaze.Deviation <= d.cfg.GazeDeviationThreshold {
		s.gazeDeviationCount = 0
		return nil, nil
	}
	s.gazeDeviationCount++

	return []models.Detection{{
		Timestamp:  in.now,
		Kind:       models.KindGazeDeviation,
		Severity:   models.SeverityMedium,
		Confidence: gazeConfidence,
		Message:    "Looking away from camera",
		Details: map[string]interface{}{
			"gaze_direction": gaze.Direction,
			"deviation":      gaze.Deviation,
			"threshold":      d.cfg.GazeDeviationThreshold,
			"vector":         gaze.Vector[:],
			"duration":       s.gazeDeviationCount,
		},
	}}, nil
}

// estimateGaze measures the midpoint of both eye centres against the frame
// centre, normalized by half the frame width.
func estimateGaze(landmarks []Landmark, width, height int) (gazeEstimate, error) {
	if len(landmarks) < minMeshLandmarks {
		return gazeEstimate{}, fmt.Errorf("face mesh returned %d landmarks, need %d", len(landmarks), minMeshLandmarks)
	}
	if width <= 0 || height <= 0 {
		return gazeEstimate{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	w, h := float64(width), float64(height)
	lx, ly := eyeCentre(landmarks, leftEyeLandmarks, w, h)
	rx, ry := eyeCentre(landmarks, rightEyeLandmarks, w, h)

	vx := (lx+rx)/2 - w/2
	vy := (ly+ry)/2 - h/2

	return gazeEstimate{
		Direction: gazeDirection(vx, vy),
		Deviation: math.Hypot(vx, vy) / (w / 2),
		Vector:    [2]float64{vx, vy},
	}, nil
}

func eyeCentre(landmarks []Landmark, indices []int, w, h float64) (float64, float64) {
	var x, y float64
	for _, i := range indices {
		x += landmarks[i].X * w
		y += landmarks[i].Y * h
	}
	n := float64(len(indices))
	return x / n, y / n
}

func gazeDirection(vx, vy float64) string {
	switch {
	case vx == 0 && vy == 0:
		return "center"
	case math.Abs(vx) > math.Abs(vy):
		if vx > 0 {
			return "right"
		}
		return "left"
	case vy > 0:
		return "down"
	default:
		return "up"
	}
}
