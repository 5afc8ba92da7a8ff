package models

import "time"

// Giftcard balance is stored in cents. The balance only decreases when a
// hold is consumed, never when one is created.
type Giftcard struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GiftcardHold is a soft reservation against a giftcard's balance. A hold is
// destroyed exactly once: consumed (converted into a debit) or released.
type GiftcardHold struct {
	ID          string    `json:"id"`
	GiftcardID  int64     `json:"giftcard_id"`
	AmountCents int64     `json:"amount_cents"`
	BookingID   int64     `json:"booking_id"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// GiftcardAuditEntry is an immutable log row for every hold, consume and
// release event on a giftcard.
type GiftcardAuditEntry struct {
	ID          int64     `json:"id"`
	GiftcardID  int64     `json:"giftcard_id"`
	Action      string    `json:"action"` // hold, consume, release
	AmountCents int64     `json:"amount_cents"`
	BookingID   int64     `json:"booking_id,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
