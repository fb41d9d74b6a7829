// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Classifier errors.
	ErrModelLoad            = errors.New("model load failed")
	ErrNotReady             = errors.New("model not ready")
	ErrClassificationFailed = errors.New("classification failed")

	// Scan session errors.
	ErrCaptureFailed  = errors.New("no frame available")
	ErrCoolingDown    = errors.New("scanner cooling down")
	ErrScanInProgress = errors.New("scan already in progress")
	ErrSessionClosed  = errors.New("session closed")
	ErrPersistence    = errors.New("persistence failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the user-facing message carried by err, or fallback
// when err does not wrap a UserError.
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return fallback
}
