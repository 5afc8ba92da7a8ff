package domain

import (
	"context"

	"keramika/internal/models"
)

// ScheduleSource provides the read-mostly schedule data the availability
// path expands. Implemented by the database and by the caching repository
// layer wrapping it.
type ScheduleSource interface {
	GetSchedulingRules(ctx context.Context) ([]models.SchedulingRule, error)
	GetSessionOverrides(ctx context.Context) (map[string]models.SessionOverride, error)
	GetCourses(ctx context.Context) ([]models.Course, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier pushes a human-readable notification to the staff channel.
type Notifier interface {
	NotifyManagers(text string) error
}

// MailSender delivers a single email. Implementations must be safe for
// concurrent use; the worker retries on error.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
