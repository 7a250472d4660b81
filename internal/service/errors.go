package service

import (
	"alcyxob/rehab-app/internal/domain"
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrValidation             = errors.New("validation failed")
	ErrUserNotFound           = errors.New("user not found")
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrAssignmentAccessDenied = errors.New("access denied to this assignment")
	ErrVariantNotFound        = errors.New("exercise variant not found")
	ErrVariantExists          = errors.New("a variant already exists for this category and difficulty")
	ErrCategoryNotFound       = errors.New("exercise category not found")
	ErrCategoryExists         = errors.New("an exercise category with this name already exists")
	ErrInjuryTypeNotFound     = errors.New("injury type not found")
	ErrStorageUnavailable     = errors.New("video storage is not configured")
)

// validationError wraps ErrValidation with a client-facing detail.
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CategoryConflictError blocks a reactivation while another assignment of the
// same category is active.
type CategoryConflictError struct {
	Category   string
	Difficulty domain.Difficulty
}

func (e *CategoryConflictError) Error() string {
	return fmt.Sprintf("You already have an active %s exercise at %s level", e.Category, e.Difficulty)
}

func validatePain(pain int) error {
	if pain < domain.MinPainLevel || pain > domain.MaxPainLevel {
		return validationError("pain level must be between %d and %d", domain.MinPainLevel, domain.MaxPainLevel)
	}
	return nil
}
