package proctoring

import "time"

// Config holds detector thresholds and session bookkeeping limits.
type Config struct {
	FaceAbsenceThreshold   int     // consecutive frames without a face
	MultipleFaceThreshold  int     // consecutive frames with more than one face
	GazeDeviationThreshold float64 // normalized by half the frame width
	MovementThreshold      float64 // baseline distance, percent of frame
	ConfidenceThreshold    float64 // minimum object detector confidence
	MotionThreshold        float64 // mean absolute pixel difference

	WatchedObjects []string

	HistoryLimit int
	WarningLimit int
	RiskWindow   time.Duration

	MaxFramePixels int // frames declaring more pixels are rejected before decoding
}

// DefaultMaxFramePixels admits frames up to 4096x4096.
const DefaultMaxFramePixels = 4096 * 4096

func DefaultConfig() Config {
	return Config{
		FaceAbsenceThreshold:   30,
		MultipleFaceThreshold:  10,
		GazeDeviationThreshold: 0.3,
		MovementThreshold:      50,
		ConfidenceThreshold:    0.5,
		MotionThreshold:        30,
		WatchedObjects:         []string{"cell phone", "laptop", "book"},
		HistoryLimit:           1000,
		WarningLimit:           1000,
		RiskWindow:             60 * time.Second,
		MaxFramePixels:         DefaultMaxFramePixels,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FaceAbsenceThreshold <= 0 {
		c.FaceAbsenceThreshold = d.FaceAbsenceThreshold
	}
	if c.MultipleFaceThreshold <= 0 {
		c.MultipleFaceThreshold = d.MultipleFaceThreshold
	}
	if c.GazeDeviationThreshold <= 0 {
		c.GazeDeviationThreshold = d.GazeDeviationThreshold
	}
	if c.MovementThreshold <= 0 {
		c.MovementThreshold = d.MovementThreshold
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.MotionThreshold <= 0 {
		c.MotionThreshold = d.MotionThreshold
	}
	if len(c.WatchedObjects) == 0 {
		c.WatchedObjects = d.WatchedObjects
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.WarningLimit <= 0 {
		c.WarningLimit = d.WarningLimit
	}
	if c.RiskWindow <= 0 {
		c.RiskWindow = d.RiskWindow
	}
	if c.MaxFramePixels <= 0 {
		c.MaxFramePixels = d.MaxFramePixels
	}
	return c
}
