package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
)

// Interview is the interview record owned by the screening backend. The
// proctoring service only reads it and writes the monitoring report.
type Interview struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	JobID          uint            `json:"job_id" gorm:"not null;index"`
	CandidateName  string          `json:"candidate_name" gorm:"size:100"`
	CandidateEmail string          `json:"candidate_email" gorm:"size:100"`
	Status         InterviewStatus `json:"status" gorm:"default:pending;size:20"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	FinalScore  *float64   `json:"final_score"`

	// SessionReport as produced at stop time
	CVMonitoringReport datatypes.JSON `json:"cv_monitoring_report" gorm:"type:jsonb"`
	MonitoringRisk     *RiskLevel     `json:"monitoring_risk" gorm:"size:20"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	ProctoringEvents []ProctoringEvent `json:"proctoring_events,omitempty" gorm:"foreignKey:InterviewID"`
}

func (Interview) TableName() string {
	return "interviews"
}
