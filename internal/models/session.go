package models

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FrameResult is returned for every successfully analyzed frame.
type FrameResult struct {
	Success          bool        `json:"success"`
	InterviewID      uint        `json:"interview_id"`
	FrameNumber      int         `json:"frame_number"`
	Detections       []Detection `json:"detections"`
	Warnings         []Warning   `json:"warnings"`
	RiskScore        float64     `json:"risk_score"`
	RiskLevel        RiskLevel   `json:"risk_level"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
	Degraded         bool        `json:"degraded,omitempty"`
}

// SessionStatus is a read-only snapshot of a proctoring session.
type SessionStatus struct {
	InterviewID    uint      `json:"interview_id"`
	Active         bool      `json:"active"`
	StartedAt      time.Time `json:"started_at"`
	FrameCount     int       `json:"frame_count"`
	DetectionCount int       `json:"detection_count"`
	WarningCount   int       `json:"warning_count"`
	RiskScore      float64   `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	RecentWarnings []Warning `json:"recent_warnings"`
}

// SessionReport is the terminal artifact produced when monitoring stops.
// The caller owns it and is responsible for persisting it.
type SessionReport struct {
	Success             bool             `json:"success"`
	InterviewID         uint             `json:"interview_id"`
	StartedAt           time.Time        `json:"started_at"`
	EndedAt             time.Time        `json:"ended_at"`
	DurationSeconds     float64          `json:"duration_seconds"`
	TotalFramesAnalyzed int              `json:"total_frames_analyzed"`
	TotalDetections     int              `json:"total_detections"`
	TotalWarnings       int              `json:"total_warnings"`
	FinalRiskScore      float64          `json:"final_risk_score"`
	RiskLevel           RiskLevel        `json:"risk_level"`
	DetectionBreakdown  map[string]int   `json:"detection_breakdown"`
	AlertLevelBreakdown map[Severity]int `json:"alert_level_breakdown"`
	CriticalEvents      []Detection      `json:"critical_events"`
	Warnings            []Warning        `json:"warnings"`
	AvgProcessingTimeMs float64          `json:"avg_processing_time_ms"`
	DegradedFrames      int              `json:"degraded_frames"`
	Summary             string           `json:"summary,omitempty"`
}
