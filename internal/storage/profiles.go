package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/ecolens/internal/model"
)

// IncreaseExperience adds amount to the user's experience points, creating
// the profile on first use.
func (s *SQLiteStorage) IncreaseExperience(ctx context.Context, userID string, amount int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, xp, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			xp = profiles.xp + excluded.xp,
			updated_at = excluded.updated_at`,
		userID, amount, now, now)
	if err != nil {
		return fmt.Errorf("failed to increase experience: %w", err)
	}
	return nil
}

// GetProfile returns the user's profile. A user without a profile has no
// experience yet and gets a zero profile rather than an error.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	return s.getProfile(ctx, s.db, userID)
}

func (s *SQLiteStorage) getProfile(ctx context.Context, q queryable, userID string) (*model.Profile, error) {
	profile := &model.Profile{UserID: userID}

	err := q.QueryRowContext(ctx, `
		SELECT xp, created_at, updated_at
		FROM profiles
		WHERE id = ?`, userID).Scan(&profile.XP, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.CreatedAt = profile.CreatedAt.UTC()
	profile.UpdatedAt = profile.UpdatedAt.UTC()
	return profile, nil
}
