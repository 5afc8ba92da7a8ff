package worker

import (
	"math"
	"time"

	"keramika/internal/models"
)

// RetryPolicy shapes the backoff between delivery attempts.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// MailRetryPolicy is the studio's delivery profile for receipt and
// confirmation mail: doubling waits from 500ms, capped at 5s.
func MailRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    models.MailMaxAttempts,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}
}

// NextDelay returns the wait before re-attempting a failed delivery.
// Attempts are 1-based; zero-valued policy fields fall back to sane defaults.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
