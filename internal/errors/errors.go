package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ChefAI error code.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION"       // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"     // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"        // 404
	ErrInFlight       ErrorCode = "IN_FLIGHT"        // 409
	ErrNoActiveRecipe ErrorCode = "NO_ACTIVE_RECIPE" // 409
	ErrStaleView      ErrorCode = "STALE_VIEW"       // 409
	ErrRequestFailed  ErrorCode = "REQUEST_FAILED"   // 502
	ErrInternal       ErrorCode = "INTERNAL"         // 500
)

// ChefError represents a structured error with code, status, and details.
type ChefError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *ChefError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ChefError) Unwrap() error {
	return e.Cause
}

// NewValidation creates a 400 error for input rejected before any request is issued.
func NewValidation(msg string) *ChefError {
	return &ChefError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for a missing, invalid or expired credential.
func NewUnauthorized(msg string) *ChefError {
	if msg == "" {
		msg = "session expired; sign in again"
	}
	return &ChefError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a recipe id missing from history.
func NewNotFound(identifier string) *ChefError {
	return &ChefError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("recipe not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInFlight creates a 409 error for a repeated trigger of an operation that is
// still outstanding.
func NewInFlight(operation string) *ChefError {
	return &ChefError{
		Code:    ErrInFlight,
		Status:  409,
		Message: fmt.Sprintf("%s is already in progress", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewNoActiveRecipe creates a 409 error for operations that need a displayed recipe.
func NewNoActiveRecipe() *ChefError {
	return &ChefError{
		Code:    ErrNoActiveRecipe,
		Status:  409,
		Message: "no recipe is loaded",
	}
}

// NewStaleView creates a 409 error for an action aimed at a recipe that is no
// longer the displayed one.
func NewStaleView(msg string) *ChefError {
	if msg == "" {
		msg = "the displayed recipe has changed; reload and try again"
	}
	return &ChefError{
		Code:    ErrStaleView,
		Status:  409,
		Message: msg,
	}
}

// NewRequestFailed creates a 502 error for any non-auth collaborator failure.
// msg is shown to the user; cause is kept for logging.
func NewRequestFailed(msg string, cause error) *ChefError {
	return &ChefError{
		Code:    ErrRequestFailed,
		Status:  502,
		Message: msg,
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *ChefError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ChefError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a ChefError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ChefError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return Is(err, ErrUnauthorized)
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var cErr *ChefError
	if stderrors.As(err, &cErr) {
		return cErr.Message
	}
	return "an internal error occurred"
}
