package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"keramika/internal/models"

	"github.com/google/uuid"
)

func (db *DB) CreateGiftcard(ctx context.Context, card *models.Giftcard) error {
	if card.Code == "" {
		card.Code = uuid.NewString()
	}
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO giftcards (code, balance_cents, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		card.Code, card.BalanceCents, now, now)
	if err != nil {
		return fmt.Errorf("failed to create giftcard: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	card.ID = id
	card.CreatedAt = now
	card.UpdatedAt = now
	return nil
}

func (db *DB) GetGiftcard(ctx context.Context, id int64) (*models.Giftcard, error) {
	return db.getGiftcard(ctx, `SELECT id, code, balance_cents, created_at, updated_at FROM giftcards WHERE id = ?`, id)
}

func (db *DB) GetGiftcardByCode(ctx context.Context, code string) (*models.Giftcard, error) {
	return db.getGiftcard(ctx, `SELECT id, code, balance_cents, created_at, updated_at FROM giftcards WHERE code = ?`, code)
}

func (db *DB) getGiftcard(ctx context.Context, query string, arg interface{}) (*models.Giftcard, error) {
	var card models.Giftcard
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&card.ID, &card.Code, &card.BalanceCents, &card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrGiftcardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giftcard: %w", err)
	}
	return &card, nil
}

// CreateHold reserves amount against the giftcard without debiting it.
// The invariant enforced here: outstanding holds may never exceed the
// balance at hold-creation time. Consume-time re-validation is the second
// line of defense, not the only one.
func (db *DB) CreateHold(ctx context.Context, hold *models.GiftcardHold) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM giftcards WHERE id = ?`, hold.GiftcardID).Scan(&balance)
	if err == sql.ErrNoRows {
		return ErrGiftcardNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read giftcard balance in tx: %w", err)
	}

	var outstanding int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM giftcard_holds WHERE giftcard_id = ?`,
		hold.GiftcardID).Scan(&outstanding)
	if err != nil {
		return fmt.Errorf("failed to sum outstanding holds in tx: %w", err)
	}

	if balance-outstanding < hold.AmountCents {
		return ErrInsufficientFunds
	}

	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO giftcard_holds (id, giftcard_id, amount_cents, booking_id, user_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		hold.ID, hold.GiftcardID, hold.AmountCents, hold.BookingID, hold.UserID, now)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	hold.CreatedAt = now

	db.auditTx(ctx, tx, hold.GiftcardID, models.AuditActionHold, hold.AmountCents, hold.BookingID, "")

	return tx.Commit()
}

func (db *DB) GetHold(ctx context.Context, holdID string) (*models.GiftcardHold, error) {
	var hold models.GiftcardHold
	err := db.QueryRowContext(ctx,
		`SELECT id, giftcard_id, amount_cents, booking_id, user_id, created_at
         FROM giftcard_holds WHERE id = ?`, holdID).
		Scan(&hold.ID, &hold.GiftcardID, &hold.AmountCents, &hold.BookingID, &hold.UserID, &hold.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &hold, nil
}

// ConsumeResult reports the outcome of a successful hold consumption.
type ConsumeResult struct {
	GiftcardID      int64
	BookingID       int64
	AmountCents     int64
	NewBalanceCents int64
}

// ConsumeHold atomically debits the giftcard, deletes the hold, writes an
// audit entry and marks the linked booking paid. The whole sequence runs in
// one immediate transaction, so a concurrent consume against the same
// giftcard serializes and re-reads the balance after this commit.
//
// The audit insert is best-effort: its failure is logged and swallowed, it
// never rolls back the debit.
func (db *DB) ConsumeHold(ctx context.Context, holdID string) (*ConsumeResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var hold models.GiftcardHold
	err = tx.QueryRowContext(ctx,
		`SELECT id, giftcard_id, amount_cents, booking_id, user_id, created_at
         FROM giftcard_holds WHERE id = ?`, holdID).
		Scan(&hold.ID, &hold.GiftcardID, &hold.AmountCents, &hold.BookingID, &hold.UserID, &hold.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hold in tx: %w", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM giftcards WHERE id = ?`, hold.GiftcardID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, ErrGiftcardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read giftcard balance in tx: %w", err)
	}

	// Defends against the balance having been consumed by a concurrent hold
	// between hold-creation and now.
	if balance < hold.AmountCents {
		return nil, ErrInsufficientFunds
	}

	newBalance := balance - hold.AmountCents
	_, err = tx.ExecContext(ctx,
		`UPDATE giftcards SET balance_cents = ?, updated_at = ? WHERE id = ?`,
		newBalance, time.Now(), hold.GiftcardID)
	if err != nil {
		return nil, fmt.Errorf("failed to debit giftcard: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM giftcard_holds WHERE id = ?`, hold.ID); err != nil {
		return nil, fmt.Errorf("failed to delete hold: %w", err)
	}

	db.auditTx(ctx, tx, hold.GiftcardID, models.AuditActionConsume, hold.AmountCents, hold.BookingID,
		fmt.Sprintf(`{"hold_id":%q}`, hold.ID))

	// Payment application lives inside the same transaction: either the
	// balance is debited and the booking shows paid, or neither happened.
	if hold.BookingID != 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE bookings SET is_paid = 1, updated_at = ? WHERE id = ?`,
			time.Now(), hold.BookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark booking paid: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit consume: %w", err)
	}

	return &ConsumeResult{
		GiftcardID:      hold.GiftcardID,
		BookingID:       hold.BookingID,
		AmountCents:     hold.AmountCents,
		NewBalanceCents: newBalance,
	}, nil
}

// ReleaseHold abandons a reservation without debiting the balance.
func (db *DB) ReleaseHold(ctx context.Context, holdID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var hold models.GiftcardHold
	err = tx.QueryRowContext(ctx,
		`SELECT id, giftcard_id, amount_cents, booking_id FROM giftcard_holds WHERE id = ?`, holdID).
		Scan(&hold.ID, &hold.GiftcardID, &hold.AmountCents, &hold.BookingID)
	if err == sql.ErrNoRows {
		return ErrHoldNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read hold in tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM giftcard_holds WHERE id = ?`, hold.ID); err != nil {
		return fmt.Errorf("failed to delete hold: %w", err)
	}

	db.auditTx(ctx, tx, hold.GiftcardID, models.AuditActionRelease, hold.AmountCents, hold.BookingID,
		fmt.Sprintf(`{"hold_id":%q}`, hold.ID))

	return tx.Commit()
}

func (db *DB) auditTx(ctx context.Context, tx *sql.Tx, giftcardID int64, action string, amountCents, bookingID int64, metadata string) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO giftcard_audit (giftcard_id, action, amount_cents, booking_id, metadata, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		giftcardID, action, amountCents, bookingID, metadata, time.Now())
	if err != nil {
		db.logger.Warn().Err(err).
			Int64("giftcard_id", giftcardID).
			Str("action", action).
			Msg("giftcard audit insert failed")
	}
}

func (db *DB) GetAuditEntries(ctx context.Context, giftcardID int64) ([]models.GiftcardAuditEntry, error) {
	query := `SELECT id, giftcard_id, action, amount_cents, COALESCE(booking_id, 0), COALESCE(metadata, ''), created_at
              FROM giftcard_audit WHERE giftcard_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, giftcardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.GiftcardAuditEntry
	for rows.Next() {
		var entry models.GiftcardAuditEntry
		err := rows.Scan(&entry.ID, &entry.GiftcardID, &entry.Action,
			&entry.AmountCents, &entry.BookingID, &entry.Metadata, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
