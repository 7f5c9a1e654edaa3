package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// MaxFramePayload bounds the encoded size of a single frame.
const MaxFramePayload = 8 << 20

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateBusiness validates business rules only
func (v *Validator) ValidateBusiness(s interface{}) apperrors.ValidationErrors {
	return v.businessValidator.Validate(s)
}

// Validate performs complete validation (struct + business rules) and
// returns apperrors.ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}

	if errs := v.ValidateBusiness(s); len(errs) > 0 {
		return errs
	}

	return nil
}

// Business returns the business validator
func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("frame_payload", validateFramePayload)
	validate.RegisterValidation("severity", validateSeverity)
	validate.RegisterValidation("review_status", validateReviewStatus)
	validate.RegisterValidation("sort_order", validateSortOrder)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateFramePayload accepts base64 text, optionally behind a data URL
// header. Decoding is left to the frame decoder.
func validateFramePayload(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) > MaxFramePayload {
		return false
	}
	if i := strings.IndexByte(value, ','); i >= 0 {
		if !strings.HasPrefix(value, "data:") {
			return false
		}
		value = value[i+1:]
	}

	n := 0
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
			n++
		case r == ' ', r == '\n', r == '\r', r == '\t':
		default:
			return false
		}
	}
	return n > 0
}

func validateSeverity(fl validator.FieldLevel) bool {
	return models.Severity(fl.Field().String()).IsValid()
}

func validateReviewStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.ReviewStatus{
		models.ReviewPending,
		models.ReviewReviewed,
		models.ReviewDismissed,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateSortOrder(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "asc" || value == "desc"
}
