package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Engine errors, shared so handlers only import this package
	ErrEngineUnavailable = proctoring.ErrEngineUnavailable
	ErrSessionNotFound   = proctoring.ErrSessionNotFound
	ErrSessionInactive   = proctoring.ErrSessionInactive
	ErrDecodeFailed      = proctoring.ErrDecodeFailed

	// Persistence errors
	ErrInterviewNotFound = repositories.ErrInterviewNotFound
	ErrEventNotFound     = repositories.ErrEventNotFound
	ErrReportNotFound    = errors.New("monitoring report not available")

	ErrFrameTimeout = errors.New("frame analysis timed out")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInterviewNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrDecodeFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionInactive) ||
		IsBusinessRule(err)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}
