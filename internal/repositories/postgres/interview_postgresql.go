package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

type InterviewPostgreSQL struct {
	db *gorm.DB
}

func NewInterviewPostgreSQL(db *gorm.DB) repositories.InterviewRepository {
	return &InterviewPostgreSQL{db: db}
}

func (i InterviewPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Interview, error) {
	var interview models.Interview
	if err := i.db.WithContext(ctx).First(&interview, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrInterviewNotFound
		}
		return nil, err
	}
	return &interview, nil
}

func (i InterviewPostgreSQL) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := i.db.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i InterviewPostgreSQL) MarkInProgress(ctx context.Context, id uint, startedAt time.Time) error {
	result := i.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.InterviewInProgress,
			"started_at": startedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrInterviewNotFound
	}
	return nil
}

func (i InterviewPostgreSQL) SaveMonitoringReport(ctx context.Context, id uint, report *models.SessionReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal monitoring report: %w", err)
	}

	result := i.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cv_monitoring_report": datatypes.JSON(raw),
			"monitoring_risk":      report.RiskLevel,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrInterviewNotFound
	}
	return nil
}
