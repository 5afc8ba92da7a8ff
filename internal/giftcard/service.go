// Package giftcard implements the two-phase balance ledger: a hold reserves
// intent without debiting, consumption debits atomically.
package giftcard

import (
	"context"
	"fmt"

	"keramika/internal/database"
	"keramika/internal/domain"
	"keramika/internal/events"
	"keramika/internal/metrics"
	"keramika/internal/models"

	"github.com/rs/zerolog"
)

type Service struct {
	db     *database.DB
	bus    domain.EventPublisher
	logger *zerolog.Logger
}

func NewService(db *database.DB, bus domain.EventPublisher, logger *zerolog.Logger) *Service {
	return &Service{db: db, bus: bus, logger: logger}
}

// Issue creates a giftcard with the given balance. An empty code gets a
// generated one.
func (s *Service) Issue(ctx context.Context, code string, balanceCents int64) (*models.Giftcard, error) {
	if balanceCents <= 0 {
		return nil, fmt.Errorf("balance must be positive")
	}
	card := &models.Giftcard{Code: code, BalanceCents: balanceCents}
	if err := s.db.CreateGiftcard(ctx, card); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("giftcard_id", card.ID).Int64("balance_cents", card.BalanceCents).
		Msg("giftcard issued")
	return card, nil
}

// Hold reserves amount against the giftcard identified by code. The balance
// itself is untouched; outstanding holds are capped at the balance.
func (s *Service) Hold(ctx context.Context, code string, amountCents, bookingID, userID int64) (*models.GiftcardHold, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("hold amount must be positive")
	}

	card, err := s.db.GetGiftcardByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	hold := &models.GiftcardHold{
		GiftcardID:  card.ID,
		AmountCents: amountCents,
		BookingID:   bookingID,
		UserID:      userID,
	}
	if err := s.db.CreateHold(ctx, hold); err != nil {
		return nil, err
	}

	s.logger.Info().Str("hold_id", hold.ID).Int64("giftcard_id", card.ID).
		Int64("amount_cents", amountCents).Msg("giftcard hold created")
	return hold, nil
}

// Consume converts a hold into a debit: balance decreases, the hold row is
// deleted, the audit trail records the event and the linked booking is
// marked paid, all in one transaction. A receipt event is published after
// commit; delivery failures never affect the financial transaction.
func (s *Service) Consume(ctx context.Context, holdID string) (*database.ConsumeResult, error) {
	result, err := s.db.ConsumeHold(ctx, holdID)
	if err != nil {
		switch err {
		case database.ErrHoldNotFound:
			metrics.IncGiftcardConsume("hold_not_found")
		case database.ErrInsufficientFunds:
			metrics.IncGiftcardConsume("insufficient_funds")
		default:
			metrics.IncGiftcardConsume("error")
		}
		return nil, err
	}
	metrics.IncGiftcardConsume("ok")

	s.logger.Info().Str("hold_id", holdID).
		Int64("giftcard_id", result.GiftcardID).
		Int64("amount_cents", result.AmountCents).
		Int64("new_balance_cents", result.NewBalanceCents).
		Msg("giftcard hold consumed")

	if s.bus != nil {
		err := s.bus.PublishJSON(events.EventGiftcardConsumed, events.GiftcardEventPayload{
			GiftcardID:      result.GiftcardID,
			BookingID:       result.BookingID,
			AmountCents:     result.AmountCents,
			NewBalanceCents: result.NewBalanceCents,
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("publish giftcard consumed event")
		}
	}

	return result, nil
}

// Release abandons a hold without debiting the balance.
func (s *Service) Release(ctx context.Context, holdID string) error {
	if err := s.db.ReleaseHold(ctx, holdID); err != nil {
		return err
	}
	s.logger.Info().Str("hold_id", holdID).Msg("giftcard hold released")
	return nil
}
