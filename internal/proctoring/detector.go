package proctoring

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// frameInput is what every detector sees for one frame.
type frameInput struct {
	frame  *Frame
	now    time.Time
	number int
}

// detector inspects one frame and may update the slice of session state it
// owns. A returned error means "no detections from this detector on this
// frame"; the engine logs it and carries on.
type detector interface {
	name() string
	detect(ctx context.Context, in frameInput, s *session) ([]models.Detection, error)
}

func newDetectorBank(m *Models, cfg Config) []detector {
	var faces FaceDetector
	var mesh FaceMesh
	var objects ObjectDetector
	if m != nil {
		faces, mesh, objects = m.Faces, m.Mesh, m.Objects
	}

	return []detector{
		&facePresenceDetector{model: faces, cfg: cfg},
		&objectDetector{model: objects, cfg: cfg},
		&gazeDetector{model: mesh, cfg: cfg},
		&motionDetector{cfg: cfg},
	}
}
