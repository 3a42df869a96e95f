// Package errors provides a lightweight structured error type (BrimError)
// for category-based classification of build failures in the pipeline and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a brim error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Inputs of a run
	CategoryTemplate ErrorCategory = "template"
	CategorySource   ErrorCategory = "source"
	CategoryData     ErrorCategory = "data"

	// Build and processing errors
	CategoryRender     ErrorCategory = "render"
	CategoryHook       ErrorCategory = "hook"
	CategoryAsset      ErrorCategory = "asset"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// BrimError is a structured error with category, severity, and context
type BrimError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BrimError
type ContextFields map[string]any

// Error implements the error interface
func (e *BrimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BrimError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BrimError) WithContext(key string, value any) *BrimError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// Fatal reports whether the error should abort a run.
func (e *BrimError) Fatal() bool {
	return e.Severity == SeverityFatal
}

// New creates a new BrimError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BrimError {
	return &BrimError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BrimError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BrimError {
	return &BrimError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As extracts the first BrimError in err's chain.
func As(err error) (*BrimError, bool) {
	var be *BrimError
	if stdErrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stdErrors.Is(err, target)
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := As(err); ok {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a BrimError
func GetCategory(err error) ErrorCategory {
	if be, ok := As(err); ok {
		return be.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *BrimError {
	return &BrimError{
		Category: CategoryValidation,
		Severity: SeverityFatal,
		Message:  message,
	}
}
