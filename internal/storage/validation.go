// Package storage provides the data persistence layer for ecolens.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/ecolens/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrInvalidScanRecord = errors.New("invalid scan record")
	ErrInvalidAmount     = errors.New("invalid experience amount")
	ErrInvalidLimit      = errors.New("invalid limit")
)

// MaxHistoryLimit bounds a single history query.
const MaxHistoryLimit = 1000

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateScanRecord validates a scan record before it is written.
func validateScanRecord(record *model.ScanRecord) error {
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidScanRecord)
	}
	if strings.TrimSpace(string(record.Category)) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidScanRecord)
	}
	if strings.TrimSpace(record.ObjectLabel) == "" {
		return fmt.Errorf("%w: missing object label", ErrInvalidScanRecord)
	}
	if math.IsNaN(record.Confidence) || record.Confidence < 0 || record.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidScanRecord)
	}
	return nil
}

// validateAmount ensures an experience award is positive.
func validateAmount(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidAmount, amount)
	}
	return nil
}

// validateLimit ensures a history limit is in range.
func validateLimit(limit int) error {
	if limit < 0 || limit > MaxHistoryLimit {
		return fmt.Errorf("%w: must be between 0 and %d, got %d", ErrInvalidLimit, MaxHistoryLimit, limit)
	}
	return nil
}
