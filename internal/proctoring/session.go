package proctoring

import (
	"sync"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// facePosition is a face centre and size as fractions of the frame.
type facePosition struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// session is the mutable state of one proctored interview. mu serializes
// every read and write, so frames for one interview are processed in order.
type session struct {
	mu sync.Mutex

	interviewID uint
	startedAt   time.Time
	endedAt     time.Time
	active      bool
	frameCount  int

	// Consecutive-frame counters. Each is owned by exactly one detector.
	faceAbsenceCount    int
	multipleFaceCount   int
	phoneDetectionCount int
	gazeDeviationCount  int

	baseline  *facePosition
	prevFrame *Frame

	history         *history
	warnings        []models.Warning
	warningLimit    int
	totalDetections int
	totalWarnings   int

	riskScore float64
	riskLevel models.RiskLevel

	processingTotal time.Duration
	degradedFrames  int
}

func newSession(interviewID uint, startedAt time.Time, cfg Config) *session {
	return &session{
		interviewID:  interviewID,
		startedAt:    startedAt,
		active:       true,
		history:      newHistory(cfg.HistoryLimit),
		warnings:     make([]models.Warning, 0),
		warningLimit: cfg.WarningLimit,
		riskLevel:    models.RiskLow,
	}
}

// record appends a detection to the history and, for high and critical
// severities, to the warning list.
func (s *session) record(d models.Detection) {
	s.history.push(d)
	s.totalDetections++
	if !d.IsWarning() {
		return
	}
	s.totalWarnings++
	s.warnings = append(s.warnings, models.NewWarning(d))
	if over := len(s.warnings) - s.warningLimit; over > 0 {
		s.warnings = append(s.warnings[:0:0], s.warnings[over:]...)
	}
}

func (s *session) recentWarnings(n int) []models.Warning {
	if len(s.warnings) < n {
		n = len(s.warnings)
	}
	out := make([]models.Warning, n)
	copy(out, s.warnings[len(s.warnings)-n:])
	return out
}
