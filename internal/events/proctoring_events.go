package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// EventType represents the kinds of proctoring events put on the bus
type EventType string

const (
	EventProctoringStarted EventType = "proctoring.started"
	EventProctoringWarning EventType = "proctoring.warning"
	EventProctoringStopped EventType = "proctoring.stopped"
)

const (
	eventSource  = "proctoring-service"
	eventVersion = "1.0"
)

// ProctoringEvent is the envelope for every event this service publishes
type ProctoringEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ProctoringStartedEvent struct {
	InterviewID uint      `json:"interview_id"`
	StartedAt   time.Time `json:"started_at"`
}

type ProctoringWarningEvent struct {
	InterviewID uint            `json:"interview_id"`
	FrameNumber int             `json:"frame_number"`
	Type        string          `json:"type"`
	Severity    models.Severity `json:"severity"`
	Confidence  float64         `json:"confidence"`
	Message     string          `json:"message"`
	Screenshot  *string         `json:"screenshot,omitempty"`
	DetectedAt  time.Time       `json:"detected_at"`
}

type ProctoringStoppedEvent struct {
	InterviewID     uint             `json:"interview_id"`
	EndedAt         time.Time        `json:"ended_at"`
	DurationSeconds float64          `json:"duration_seconds"`
	FramesAnalyzed  int              `json:"frames_analyzed"`
	TotalWarnings   int              `json:"total_warnings"`
	FinalRiskScore  float64          `json:"final_risk_score"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
}

// Event factory functions

func NewProctoringStartedEvent(interviewID uint, startedAt time.Time) *ProctoringEvent {
	return newEvent(EventProctoringStarted, ProctoringStartedEvent{
		InterviewID: interviewID,
		StartedAt:   startedAt,
	})
}

func NewProctoringWarningEvent(interviewID uint, frameNumber int, d models.Detection) *ProctoringEvent {
	return newEvent(EventProctoringWarning, ProctoringWarningEvent{
		InterviewID: interviewID,
		FrameNumber: frameNumber,
		Type:        d.Type(),
		Severity:    d.Severity,
		Confidence:  d.Confidence,
		Message:     d.Message,
		Screenshot:  d.Screenshot,
		DetectedAt:  d.Timestamp,
	})
}

func NewProctoringStoppedEvent(report *models.SessionReport) *ProctoringEvent {
	return newEvent(EventProctoringStopped, ProctoringStoppedEvent{
		InterviewID:     report.InterviewID,
		EndedAt:         report.EndedAt,
		DurationSeconds: report.DurationSeconds,
		FramesAnalyzed:  report.TotalFramesAnalyzed,
		TotalWarnings:   report.TotalWarnings,
		FinalRiskScore:  report.FinalRiskScore,
		RiskLevel:       report.RiskLevel,
	})
}

func newEvent(eventType EventType, data interface{}) *ProctoringEvent {
	return &ProctoringEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func GenerateEventID() string {
	return uuid.NewString()
}
