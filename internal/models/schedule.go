package models

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date key used everywhere a date identifies a day.
// Overrides, booking slots and session IDs all compare plain "YYYY-MM-DD"
// strings, so no timezone arithmetic can shift a day.
const DateLayout = "2006-01-02"

// TimeLayout is the canonical slot time ("HH:MM", 24h).
const TimeLayout = "15:04"

// SchedulingRule is a recurring weekly slot definition.
// Rules are admin-authored and long-lived; edits only affect future
// expansions because sessions are always derived on demand.
type SchedulingRule struct {
	ID           int64     `json:"id" yaml:"id"`
	DayOfWeek    int       `json:"day_of_week" yaml:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	Time         string    `json:"time" yaml:"time"`               // "HH:MM"
	InstructorID int64     `json:"instructor_id" yaml:"instructor_id"`
	Capacity     int       `json:"capacity" yaml:"capacity"`
	Technique    string    `json:"technique,omitempty" yaml:"technique,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// OverrideSession is one explicit session inside a date override.
type OverrideSession struct {
	Time         string `json:"time"`
	InstructorID int64  `json:"instructor_id"`
	Capacity     int    `json:"capacity"`
}

// SessionOverride replaces the rule-derived sessions for a single date.
// Closed=true means the day is fully closed and no sessions exist for it
// regardless of matching weekday rules.
type SessionOverride struct {
	Date     string            `json:"date"`
	Closed   bool              `json:"closed"`
	Sessions []OverrideSession `json:"sessions,omitempty"`
}

// EnrichedSession is a concrete dated session joined with live booking
// counts. It is derived per request and never persisted.
type EnrichedSession struct {
	ID                 string `json:"id"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	InstructorID       int64  `json:"instructor_id"`
	Capacity           int    `json:"capacity"`
	IsOverride         bool   `json:"is_override"`
	PaidBookingsCount  int    `json:"paid_bookings_count"`
	TotalBookingsCount int    `json:"total_bookings_count"`
}

// SessionID builds the derived identifier for a dated session.
func SessionID(date, timeStr string, instructorID int64) string {
	return fmt.Sprintf("%s/%s/%d", date, timeStr, instructorID)
}

// Course is a running multi-week course whose weekly window reserves its
// slot absolutely: overlapping bookings are rejected, never overridable.
type Course struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Technique string `json:"technique"`
	DayOfWeek int    `json:"day_of_week"`
	Time      string `json:"time"`
	StartDate string `json:"start_date"` // "YYYY-MM-DD"
	Weeks     int    `json:"weeks"`
}

// Covers reports whether the course reserves the given date and time.
func (c Course) Covers(date, timeStr string) bool {
	if c.Time != timeStr {
		return false
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	if int(day.Weekday()) != c.DayOfWeek {
		return false
	}
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return false
	}
	end := start.AddDate(0, 0, c.Weeks*7)
	return !day.Before(start) && day.Before(end)
}
