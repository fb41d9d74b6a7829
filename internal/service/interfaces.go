// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/ecolens/internal/model"
)

// RewardSink is the side-effecting boundary a scan session writes through.
// Both operations are treated as fire-and-forget by the session.
type RewardSink interface {
	AppendScanRecord(ctx context.Context, record model.ScanRecord) error
	IncreaseExperience(ctx context.Context, userID string, amount int) error
}

// HistoryReader exposes the read side of the profile store.
type HistoryReader interface {
	RecentScans(ctx context.Context, userID string, limit int) ([]model.ScanRecord, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RewardSink
	HistoryReader

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for remote calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
