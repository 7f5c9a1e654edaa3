package postgres

import (
	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

type Repository struct {
	interview       repositories.InterviewRepository
	proctoringEvent repositories.ProctoringEventRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		interview:       NewInterviewPostgreSQL(db),
		proctoringEvent: NewProctoringEventPostgreSQL(db),
	}
}

func (r *Repository) Interview() repositories.InterviewRepository {
	return r.interview
}

func (r *Repository) ProctoringEvent() repositories.ProctoringEventRepository {
	return r.proctoringEvent
}

// AutoMigrate creates the proctoring_events table. The interviews table is
// owned by the screening backend and is only migrated when requested.
func AutoMigrate(db *gorm.DB, includeInterviews bool) error {
	if includeInterviews {
		if err := db.AutoMigrate(&models.Interview{}); err != nil {
			return err
		}
	}
	return db.AutoMigrate(&models.ProctoringEvent{})
}
