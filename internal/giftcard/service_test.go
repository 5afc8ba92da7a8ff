package giftcard

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"keramika/internal/database"
	"keramika/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *events.EventBus) {
	t.Helper()
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewEventBus()
	return NewService(db, bus, &logger), bus
}

func TestIssueRejectsNonPositiveBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "", 0)
	assert.Error(t, err)
	_, err = svc.Issue(ctx, "", -100)
	assert.Error(t, err)
}

func TestHoldByCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	card, err := svc.Issue(ctx, "GIFT-1", 5000)
	require.NoError(t, err)

	hold, err := svc.Hold(ctx, "GIFT-1", 2000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, card.ID, hold.GiftcardID)

	_, err = svc.Hold(ctx, "missing", 2000, 0, 0)
	assert.ErrorIs(t, err, database.ErrGiftcardNotFound)
}

func TestConsumePublishesReceiptEvent(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	var got events.GiftcardEventPayload
	bus.Subscribe(events.EventGiftcardConsumed, func(event *events.Event) error {
		return json.Unmarshal(event.Payload, &got)
	})

	card, err := svc.Issue(ctx, "", 5000)
	require.NoError(t, err)
	hold, err := svc.Hold(ctx, card.Code, 5000, 0, 0)
	require.NoError(t, err)

	result, err := svc.Consume(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NewBalanceCents)

	assert.Equal(t, card.ID, got.GiftcardID)
	assert.Equal(t, int64(5000), got.AmountCents)
	assert.Equal(t, int64(0), got.NewBalanceCents)
}

func TestReleaseFreesReservation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	card, err := svc.Issue(ctx, "", 5000)
	require.NoError(t, err)
	hold, err := svc.Hold(ctx, card.Code, 5000, 0, 0)
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, hold.ID))

	_, err = svc.Hold(ctx, card.Code, 5000, 0, 0)
	assert.NoError(t, err, "released hold no longer counts against the balance")
}
