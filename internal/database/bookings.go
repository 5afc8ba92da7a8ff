package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"keramika/internal/models"
)

// SlotCount carries participant totals for one (date, time) slot.
type SlotCount struct {
	Paid  int
	Total int
}

// GetBookedParticipants sums participants over non-cancelled bookings
// occupying the exact (date, time, technique) triple.
func (db *DB) GetBookedParticipants(ctx context.Context, date, timeStr, technique string) (int, error) {
	query := `SELECT COALESCE(SUM(b.participants), 0)
              FROM booking_slots bs
              JOIN bookings b ON b.id = bs.booking_id
              WHERE bs.date = ? AND bs.time = ? AND b.technique = ? AND b.status != ?`
	var count int
	err := db.QueryRowContext(ctx, query, date, timeStr, technique, models.StatusCancelled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get booked participants: %w", err)
	}
	return count, nil
}

// GetSlotCounts returns paid and total participant counts per (date, time)
// over an inclusive date range. An empty technique counts every discipline.
func (db *DB) GetSlotCounts(ctx context.Context, technique, startDate, endDate string) (map[models.TimeSlot]SlotCount, error) {
	query := `SELECT bs.date, bs.time,
                     COALESCE(SUM(CASE WHEN b.is_paid THEN b.participants ELSE 0 END), 0),
                     COALESCE(SUM(b.participants), 0)
              FROM booking_slots bs
              JOIN bookings b ON b.id = bs.booking_id
              WHERE bs.date BETWEEN ? AND ? AND (? = '' OR b.technique = ?) AND b.status != ?
              GROUP BY bs.date, bs.time`
	rows, err := db.QueryContext(ctx, query, startDate, endDate, technique, technique, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TimeSlot]SlotCount)
	for rows.Next() {
		var slot models.TimeSlot
		var count SlotCount
		if err := rows.Scan(&slot.Date, &slot.Time, &count.Paid, &count.Total); err != nil {
			return nil, fmt.Errorf("failed to scan slot count: %w", err)
		}
		counts[slot] = count
	}
	return counts, rows.Err()
}

// OverrideCapacity returns the override capacity for a (date, time) slot if
// one exists; ok=false means the technique pool applies.
func (db *DB) OverrideCapacity(ctx context.Context, date, timeStr string) (int, bool, error) {
	var capacity int
	err := db.QueryRowContext(ctx,
		`SELECT capacity FROM override_sessions WHERE date = ? AND time = ?`, date, timeStr).
		Scan(&capacity)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get override capacity: %w", err)
	}
	return capacity, true, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateBookingWithSlotLock re-checks capacity and inserts the booking in a
// single immediate transaction, so two concurrent checkouts cannot both pass
// the capacity check and overshoot the cap.
func (db *DB) CreateBookingWithSlotLock(ctx context.Context, booking *models.Booking) error {
	techniqueCap, ok := db.TechniqueCapacity(booking.Technique)
	if !ok {
		return fmt.Errorf("unknown technique: %s", booking.Technique)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, slot := range booking.Slots {
		conflict, err := courseConflictTx(ctx, tx, slot.Date, slot.Time, booking.Technique)
		if err != nil {
			return err
		}
		if conflict {
			return ErrCourseConflict
		}

		maxCapacity := techniqueCap
		var overrideCap int
		err = tx.QueryRowContext(ctx,
			`SELECT capacity FROM override_sessions WHERE date = ? AND time = ?`,
			slot.Date, slot.Time).Scan(&overrideCap)
		switch {
		case err == nil:
			maxCapacity = overrideCap
		case err != sql.ErrNoRows:
			return fmt.Errorf("failed to check override capacity in tx: %w", err)
		}

		var booked int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(b.participants), 0)
             FROM booking_slots bs
             JOIN bookings b ON b.id = bs.booking_id
             WHERE bs.date = ? AND bs.time = ? AND b.technique = ? AND b.status != ?`,
			slot.Date, slot.Time, booking.Technique, models.StatusCancelled).Scan(&booked)
		if err != nil {
			return fmt.Errorf("failed to check availability in tx: %w", err)
		}

		if booked+booking.Participants > maxCapacity {
			return ErrNotAvailable
		}
	}

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}
	return tx.Commit()
}

func insertBookingTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}

	query := `INSERT INTO bookings (
                customer_name, customer_email, phone, technique, participants,
                is_paid, status, comment, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.Phone,
		booking.Technique,
		booking.Participants,
		booking.IsPaid,
		booking.Status,
		booking.Comment,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, slot := range booking.Slots {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO booking_slots (booking_id, date, time) VALUES (?, ?, ?)`,
			id, slot.Date, slot.Time)
		if err != nil {
			return fmt.Errorf("failed to insert booking slot: %w", err)
		}
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func courseConflictTx(ctx context.Context, tx *sql.Tx, date, timeStr, technique string) (bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, technique, day_of_week, time, start_date, weeks
         FROM courses WHERE technique = ? AND time = ?`, technique, timeStr)
	if err != nil {
		return false, fmt.Errorf("failed to query courses in tx: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var course models.Course
		err := rows.Scan(&course.ID, &course.Name, &course.Technique,
			&course.DayOfWeek, &course.Time, &course.StartDate, &course.Weeks)
		if err != nil {
			return false, fmt.Errorf("failed to scan course in tx: %w", err)
		}
		if course.Covers(date, timeStr) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT id, customer_name, customer_email, phone, technique, participants,
                     is_paid, status, comment, created_at, updated_at
              FROM bookings WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.Phone,
		&booking.Technique,
		&booking.Participants,
		&booking.IsPaid,
		&booking.Status,
		&booking.Comment,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	slots, err := db.getBookingSlots(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Slots = slots
	return &booking, nil
}

func (db *DB) getBookingSlots(ctx context.Context, bookingID int64) ([]models.TimeSlot, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT date, time FROM booking_slots WHERE booking_id = ? ORDER BY date, time`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking slots: %w", err)
	}
	defer rows.Close()

	var slots []models.TimeSlot
	for rows.Next() {
		var slot models.TimeSlot
		if err := rows.Scan(&slot.Date, &slot.Time); err != nil {
			return nil, fmt.Errorf("failed to scan booking slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate string) ([]models.Booking, error) {
	query := `SELECT DISTINCT b.id, b.customer_name, b.customer_email, b.phone, b.technique,
                     b.participants, b.is_paid, b.status, b.comment, b.created_at, b.updated_at
              FROM bookings b
              JOIN booking_slots bs ON bs.booking_id = b.id
              WHERE bs.date BETWEEN ? AND ?
              ORDER BY b.id`
	rows, err := db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.CustomerName,
			&booking.CustomerEmail,
			&booking.Phone,
			&booking.Technique,
			&booking.Participants,
			&booking.IsPaid,
			&booking.Status,
			&booking.Comment,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		slots, err := db.getBookingSlots(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Slots = slots
	}
	return bookings, nil
}
