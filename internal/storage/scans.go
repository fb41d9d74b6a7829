package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Veraticus/ecolens/internal/model"
)

// DefaultHistoryLimit is the number of scans returned when no limit is given.
const DefaultHistoryLimit = 10

// AppendScanRecord stores one scan in the user's history. A missing ID or
// timestamp is filled in.
func (s *SQLiteStorage) AppendScanRecord(ctx context.Context, record model.ScanRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScanRecord(&record); err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ScannedAt.IsZero() {
		record.ScannedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_scans (id, user_id, category, object_name, confidence, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, string(record.Category), record.ObjectLabel,
		record.Confidence, record.ScannedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append scan record: %w", err)
	}
	return nil
}

// RecentScans returns the user's most recent scans, newest first.
func (s *SQLiteStorage) RecentScans(ctx context.Context, userID string, limit int) ([]model.ScanRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}

	return s.recentScans(ctx, s.db, userID, limit)
}

func (s *SQLiteStorage) recentScans(ctx context.Context, q queryable, userID string, limit int) ([]model.ScanRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, category, object_name, confidence, scanned_at
		FROM user_scans
		WHERE user_id = ?
		ORDER BY scanned_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ScanRecord
	for rows.Next() {
		var r model.ScanRecord
		var category string
		if err := rows.Scan(&r.ID, &r.UserID, &category, &r.ObjectLabel, &r.Confidence, &r.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Category = model.Category(category)
		r.ScannedAt = r.ScannedAt.UTC()
		records = append(records, r)
	}

	return records, rows.Err()
}

// CategoryCounts returns how many scans the user has per category.
func (s *SQLiteStorage) CategoryCounts(ctx context.Context, userID string) (map[model.Category]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM user_scans
		WHERE user_id = ?
		GROUP BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[model.Category(category)] = n
	}

	return counts, rows.Err()
}
