package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewReviewed  ReviewStatus = "reviewed"
	ReviewDismissed ReviewStatus = "dismissed"
)

// ProctoringEvent is the persisted form of a warning raised during an interview.
type ProctoringEvent struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	InterviewID uint   `json:"interview_id" gorm:"not null;index"`
	Type        string `json:"type" gorm:"not null;index;size:100"`

	// Event data
	Data       datatypes.JSON `json:"data" gorm:"type:jsonb"`
	Severity   Severity       `json:"severity" gorm:"not null;size:20"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message" gorm:"type:text"`

	// Evidence
	ScreenshotURL *string `json:"screenshot_url" gorm:"size:500"`

	// Context
	FrameNumber int       `json:"frame_number"`
	TimeOffset  int       `json:"time_offset"` // Seconds from monitoring start
	DetectedAt  time.Time `json:"detected_at"`

	// Review status
	ReviewStatus ReviewStatus `json:"review_status" gorm:"default:pending;size:20"`
	ReviewedBy   *string      `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt   *time.Time   `json:"reviewed_at"`
	ReviewNotes  *string      `json:"review_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Interview *Interview `json:"interview,omitempty" gorm:"foreignKey:InterviewID"`
}

func (ProctoringEvent) TableName() string {
	return "proctoring_events"
}
