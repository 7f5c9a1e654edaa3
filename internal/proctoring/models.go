package proctoring

import "context"

// FaceBox is a detected face in coordinates relative to the frame size.
type FaceBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}

// Landmark is a face mesh point normalized to [0,1] by frame width and height.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ObjectBox is a single object detector hit; BBox is x1,y1,x2,y2 in pixels.
type ObjectBox struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

type FaceDetector interface {
	DetectFaces(ctx context.Context, frame *Frame) ([]FaceBox, error)
}

type FaceMesh interface {
	// Landmarks returns one landmark set per detected face.
	Landmarks(ctx context.Context, frame *Frame) ([][]Landmark, error)
}

type ObjectDetector interface {
	DetectObjects(ctx context.Context, frame *Frame) ([]ObjectBox, error)
}

// Models is the capability handle produced by model initialization. A nil
// member disables the detector that depends on it.
type Models struct {
	Faces   FaceDetector
	Mesh    FaceMesh
	Objects ObjectDetector
}
