package validator

import (
	"github.com/SAP-F-2025/proctoring-service/internal/errors"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// BusinessValidator checks rules that span several fields
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// Validate dispatches on the request type; unknown types pass.
func (v *BusinessValidator) Validate(s interface{}) errors.ValidationErrors {
	switch req := s.(type) {
	case *models.ProctoringEventQuery:
		return v.ValidateEventQuery(req)
	case models.ProctoringEventQuery:
		return v.ValidateEventQuery(&req)
	default:
		return nil
	}
}

func (v *BusinessValidator) ValidateEventQuery(q *models.ProctoringEventQuery) errors.ValidationErrors {
	var errs errors.ValidationErrors
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		errs = append(errs, *errors.NewValidationErrorWithRule("date_to", "must not be before date_from", "date_range", q.DateTo))
	}
	return errs
}
