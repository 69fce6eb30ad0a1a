package domain

import (
	"errors"
	"fmt"
)

// Error codes for the conditions this engine distinguishes.
const (
	CodeValidation        = "VALIDATION"
	CodeSensorUnavailable = "SENSOR_UNAVAILABLE"
	CodeTransientIO       = "TRANSIENT_IO"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// AppError carries an error code alongside the message so callers can map
// expected conditions (validation, degraded sensors, retryable IO) without
// string matching.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// User-correctable, non-fatal: the operation simply does not proceed.
func NewValidation(format string, args ...any) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Non-fatal, degraded: GPS denied, unavailable, or timed out. Message is
// the human-readable reason shown to the operator.
func NewSensorUnavailable(format string, args ...any) *AppError {
	return &AppError{Code: CodeSensorUnavailable, Message: fmt.Sprintf(format, args...)}
}

// Retryable IO failure: the state the operation would have mutated is
// guaranteed untouched, so the same action can be retried.
func NewTransientIO(op string, err error) *AppError {
	return &AppError{Code: CodeTransientIO, Message: op, Err: err}
}

// Programming-contract violation: an operation called in a phase where it
// is not legal. Treated as a defect, not a user-facing condition.
func NewInvalidTransition(format string, args ...any) *AppError {
	return &AppError{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func codeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsValidation(err error) bool        { return codeOf(err) == CodeValidation }
func IsSensorUnavailable(err error) bool { return codeOf(err) == CodeSensorUnavailable }
func IsTransientIO(err error) bool       { return codeOf(err) == CodeTransientIO }
func IsInvalidTransition(err error) bool { return codeOf(err) == CodeInvalidTransition }
