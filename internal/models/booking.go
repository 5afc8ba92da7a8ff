package models

import "time"

// TimeSlot is a single (date, time) pair occupied by a booking.
type TimeSlot struct {
	Date string `json:"date"` // "YYYY-MM-DD"
	Time string `json:"time"` // "HH:MM"
}

type Booking struct {
	ID            int64      `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	Phone         string     `json:"phone"`
	Technique     string     `json:"technique"`
	Participants  int        `json:"participants"`
	Slots         []TimeSlot `json:"slots"`
	IsPaid        bool       `json:"is_paid"`
	Status        string     `json:"status"` // pending, confirmed, cancelled, completed
	Comment       string     `json:"comment"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BookingOverrideRecord is an append-only audit record of a human-authorized
// exception. A booking may accumulate several over its lifetime; the list is
// a chronological trail, not a mutable flag.
type BookingOverrideRecord struct {
	ID           int64     `json:"id"`
	BookingID    int64     `json:"booking_id"`
	OverriddenBy string    `json:"overridden_by"`
	Reason       string    `json:"reason"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
