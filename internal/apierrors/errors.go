// Package apierrors defines the categorized error type that flows upward
// from every subsystem to Job records, NodeState/LinkState error fields,
// and the REST boundary's status-code mapping (spec §7).
package apierrors

import (
	"errors"
	"fmt"

	"github.com/netlab-io/controller/internal/models"
)

// CategorizedError is the error type every subsystem returns at its public
// boundary: a closed-set category, a human message, and structured detail.
type CategorizedError struct {
	Category models.ErrorCategory
	Message  string
	Details  map[string]any
	Cause    error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *CategorizedError) Unwrap() error { return e.Cause }

// New builds a CategorizedError with no wrapped cause.
func New(category models.ErrorCategory, message string, details map[string]any) *CategorizedError {
	return &CategorizedError{Category: category, Message: message, Details: details}
}

// Wrap builds a CategorizedError around an existing error.
func Wrap(category models.ErrorCategory, message string, cause error) *CategorizedError {
	return &CategorizedError{Category: category, Message: message, Cause: cause}
}

// CategoryOf extracts the category from err if it is (or wraps) a
// *CategorizedError, defaulting to CategoryUnknown otherwise.
func CategoryOf(err error) models.ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return models.CategoryUnknown
}

// Sentinel errors for the common not-found / already-exists / conflict
// cases repositories and services return; callers use errors.Is against
// these rather than matching on CategorizedError.Message.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
)
