// Package override records human-authorized exceptions to soft validation
// warnings. The record is informational: the booking itself is untouched,
// but why an admin proceeded past a warning stays discoverable.
package override

import (
	"context"
	"errors"
	"strings"

	"keramika/internal/database"
	"keramika/internal/domain"
	"keramika/internal/events"
	"keramika/internal/metrics"
	"keramika/internal/models"

	"github.com/rs/zerolog"
)

var ErrReasonRequired = errors.New("override reason is required")

type Authorizer struct {
	db     *database.DB
	bus    domain.EventPublisher
	logger *zerolog.Logger
}

func NewAuthorizer(db *database.DB, bus domain.EventPublisher, logger *zerolog.Logger) *Authorizer {
	return &Authorizer{db: db, bus: bus, logger: logger}
}

// Authorize appends an override record for the booking. A booking may
// accumulate any number of records; nothing is ever replaced.
func (a *Authorizer) Authorize(ctx context.Context, bookingID int64, overriddenBy, reason, metadata string) (*models.BookingOverrideRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	record := &models.BookingOverrideRecord{
		BookingID:    bookingID,
		OverriddenBy: overriddenBy,
		Reason:       reason,
		Metadata:     metadata,
	}
	if err := a.db.CreateBookingOverride(ctx, record); err != nil {
		return nil, err
	}
	metrics.IncOverrideRecorded()

	a.logger.Info().Int64("booking_id", bookingID).Str("overridden_by", overriddenBy).
		Msg("admin override recorded")

	if a.bus != nil {
		err := a.bus.PublishJSON(events.EventOverrideRecorded, events.OverrideEventPayload{
			BookingID:    bookingID,
			OverriddenBy: overriddenBy,
			Reason:       reason,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("publish override recorded event")
		}
	}

	return record, nil
}

// ListForBooking returns the chronological override trail for a booking.
func (a *Authorizer) ListForBooking(ctx context.Context, bookingID int64) ([]models.BookingOverrideRecord, error) {
	return a.db.GetBookingOverrides(ctx, bookingID)
}
