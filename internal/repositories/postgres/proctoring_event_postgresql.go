package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

const eventBatchSize = 100

type ProctoringEventPostgreSQL struct {
	db *gorm.DB
}

func NewProctoringEventPostgreSQL(db *gorm.DB) repositories.ProctoringEventRepository {
	return &ProctoringEventPostgreSQL{db: db}
}

func (p ProctoringEventPostgreSQL) Create(ctx context.Context, event *models.ProctoringEvent) error {
	return p.db.WithContext(ctx).Create(event).Error
}

func (p ProctoringEventPostgreSQL) CreateBatch(ctx context.Context, events []*models.ProctoringEvent) error {
	if len(events) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).CreateInBatches(events, eventBatchSize).Error
}

func (p ProctoringEventPostgreSQL) ListByInterview(ctx context.Context, interviewID uint, filters repositories.ProctoringEventFilters) ([]*models.ProctoringEvent, int64, error) {
	var events []*models.ProctoringEvent
	var total int64

	// apply filter first
	query := p.db.WithContext(ctx).Model(&models.ProctoringEvent{}).Where("interview_id = ?", interviewID)
	query = p.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = p.applyPaginationAndSort(query, filters)

	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (p ProctoringEventPostgreSQL) CountBySeverity(ctx context.Context, interviewID uint) (map[models.Severity]int64, error) {
	var rows []struct {
		Severity models.Severity
		Count    int64
	}
	if err := p.db.WithContext(ctx).
		Model(&models.ProctoringEvent{}).
		Select("severity, COUNT(*) AS count").
		Where("interview_id = ?", interviewID).
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.Severity]int64, len(models.Severities))
	for _, sev := range models.Severities {
		counts[sev] = 0
	}
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}

func (p ProctoringEventPostgreSQL) UpdateReview(ctx context.Context, id uint, status models.ReviewStatus, reviewer string, notes *string) error {
	now := time.Now()
	result := p.db.WithContext(ctx).
		Model(&models.ProctoringEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_status": status,
			"reviewed_by":   reviewer,
			"reviewed_at":   now,
			"review_notes":  notes,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrEventNotFound
	}
	return nil
}

func (p ProctoringEventPostgreSQL) DeleteByInterview(ctx context.Context, interviewID uint) error {
	return p.db.WithContext(ctx).Where("interview_id = ?", interviewID).Delete(&models.ProctoringEvent{}).Error
}

func (p ProctoringEventPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ProctoringEventFilters) *gorm.DB {
	if filters.Severity != nil {
		query = query.Where("severity = ?", *filters.Severity)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.ReviewStatus != nil {
		query = query.Where("review_status = ?", *filters.ReviewStatus)
	}
	if filters.DateFrom != nil {
		query = query.Where("detected_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("detected_at <= ?", *filters.DateTo)
	}
	return query
}

func (p ProctoringEventPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ProctoringEventFilters) *gorm.DB {
	order := "ASC"
	if filters.SortOrder == "desc" {
		order = "DESC"
	}
	query = query.Order("detected_at " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
