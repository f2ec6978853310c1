package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrProvider        = errors.New("provider error")
	ErrValidation      = errors.New("validation failed")
	ErrInternal        = errors.New("internal error")
)

// NewAppError builds an AppError with a stable code, a human message and a cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapError annotates err with message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ProcessingError is the terminal failure of the normalizer's retry budget.
// Reason is either "validation failed" or "max retries exceeded"; Cause
// carries the last underlying error.
type ProcessingError struct {
	Reason string
	Cause  error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processing error: %s: %v", e.Reason, e.Cause)
	}
	return "processing error: " + e.Reason
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Reasons carried by ProcessingError.
const (
	ReasonValidationFailed   = "validation failed"
	ReasonMaxRetriesExceeded = "max retries exceeded"
)
