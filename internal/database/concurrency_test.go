package database

import (
	"context"
	"sync"
	"testing"

	"keramika/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBookingRespectsCapacity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	// Wheel pool is 6; ten concurrent two-person groups want the same slot.
	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			booking := &models.Booking{
				CustomerName: "Group",
				Technique:    models.TechniquePottersWheel,
				Participants: 2,
				Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
			}
			results <- db.CreateBookingWithSlotLock(ctx, booking)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrNotAvailable)
		}
	}

	// Exactly three two-person groups fit into a pool of six.
	assert.Equal(t, 3, successCount)

	booked, err := db.GetBookedParticipants(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel)
	require.NoError(t, err)
	assert.Equal(t, 6, booked)
}

func TestConcurrentConsumeDebitsOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	card := &models.Giftcard{BalanceCents: 5000}
	require.NoError(t, db.CreateGiftcard(ctx, card))

	hold := &models.GiftcardHold{GiftcardID: card.ID, AmountCents: 5000}
	require.NoError(t, db.CreateHold(ctx, hold))

	var wg sync.WaitGroup
	wg.Add(2)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, err := db.ConsumeHold(ctx, hold.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrHoldNotFound)
		}
	}
	assert.Equal(t, 1, successCount, "exactly one consume must win")

	got, err := db.GetGiftcard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.BalanceCents)
}
