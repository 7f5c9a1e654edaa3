package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrEventNotFound     = errors.New("proctoring event not found")
)

// ===== SHARED FILTER STRUCTS =====

type ProctoringEventFilters struct {
	Severity     *models.Severity     `json:"severity"`
	Type         *string              `json:"type"`
	ReviewStatus *models.ReviewStatus `json:"review_status"`
	DateFrom     *time.Time           `json:"date_from"`
	DateTo       *time.Time           `json:"date_to"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	SortOrder    string               `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORIES =====

// InterviewRepository reads interview records and stores the monitoring outcome
type InterviewRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Interview, error)
	Exists(ctx context.Context, id uint) (bool, error)
	MarkInProgress(ctx context.Context, id uint, startedAt time.Time) error
	SaveMonitoringReport(ctx context.Context, id uint, report *models.SessionReport) error
}

// ProctoringEventRepository persists warnings raised during monitoring
type ProctoringEventRepository interface {
	Create(ctx context.Context, event *models.ProctoringEvent) error
	CreateBatch(ctx context.Context, events []*models.ProctoringEvent) error
	ListByInterview(ctx context.Context, interviewID uint, filters ProctoringEventFilters) ([]*models.ProctoringEvent, int64, error)
	CountBySeverity(ctx context.Context, interviewID uint) (map[models.Severity]int64, error)
	UpdateReview(ctx context.Context, id uint, status models.ReviewStatus, reviewer string, notes *string) error
	DeleteByInterview(ctx context.Context, interviewID uint) error
}

// Repository groups the repositories used by the service layer
type Repository interface {
	Interview() InterviewRepository
	ProctoringEvent() ProctoringEventRepository
}
