package database

import (
	"context"
	"fmt"
	"time"

	"keramika/internal/models"
)

// CreateBookingOverride appends an override record. Records are never
// updated or deleted; the full list is the audit trail.
func (db *DB) CreateBookingOverride(ctx context.Context, record *models.BookingOverrideRecord) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO booking_overrides (booking_id, overridden_by, reason, metadata, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		record.BookingID, record.OverriddenBy, record.Reason, record.Metadata, now)
	if err != nil {
		return fmt.Errorf("failed to create booking override: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	record.CreatedAt = now
	return nil
}

// GetBookingOverrides returns a booking's override records oldest-first.
func (db *DB) GetBookingOverrides(ctx context.Context, bookingID int64) ([]models.BookingOverrideRecord, error) {
	query := `SELECT id, booking_id, overridden_by, reason, COALESCE(metadata, ''), created_at
              FROM booking_overrides WHERE booking_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking overrides: %w", err)
	}
	defer rows.Close()

	var records []models.BookingOverrideRecord
	for rows.Next() {
		var record models.BookingOverrideRecord
		err := rows.Scan(&record.ID, &record.BookingID, &record.OverriddenBy,
			&record.Reason, &record.Metadata, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking override: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
