package models

import "time"

// AnalyzeFrameRequest carries one captured video frame
type AnalyzeFrameRequest struct {
	Frame string `json:"frame" validate:"required,frame_payload"`
}

// ProctoringEventQuery filters the persisted warnings of an interview
type ProctoringEventQuery struct {
	Severity     string     `form:"severity" json:"severity" validate:"omitempty,severity"`
	Type         string     `form:"type" json:"type" validate:"omitempty,max=100"`
	ReviewStatus string     `form:"review_status" json:"review_status" validate:"omitempty,review_status"`
	DateFrom     *time.Time `form:"date_from" json:"date_from" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo       *time.Time `form:"date_to" json:"date_to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit        int        `form:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
	Offset       int        `form:"offset" json:"offset" validate:"omitempty,min=0"`
	SortOrder    string     `form:"sort_order" json:"sort_order" validate:"omitempty,sort_order"`
}

// ReviewEventRequest records a human decision on a persisted warning
type ReviewEventRequest struct {
	ReviewStatus ReviewStatus `json:"review_status" validate:"required,review_status"`
	Reviewer     string       `json:"reviewer" validate:"required,email"`
	Notes        *string      `json:"notes" validate:"omitempty,max=1000"`
}
