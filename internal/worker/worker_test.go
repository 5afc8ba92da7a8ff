package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"keramika/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, 500*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, time.Second, policy.NextDelay(2))
	assert.Equal(t, 2*time.Second, policy.NextDelay(3))
	assert.Equal(t, 5*time.Second, policy.NextDelay(10), "clamped at MaxDelay")
	assert.Equal(t, 500*time.Millisecond, policy.NextDelay(0), "attempt below 1 normalized")
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := RetryPolicy{}
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
}

func TestMailRetryPolicyProfile(t *testing.T) {
	policy := MailRetryPolicy()
	assert.Equal(t, models.MailMaxAttempts, policy.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(10), "clamped at MaxDelay")
}

type recordingSender struct {
	mu       sync.Mutex
	failures int
	sent     []MailJob
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, MailJob{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestMailWorkerDelivers(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{}
	w := NewMailWorker(sender, &logger)
	w.retryPolicy.InitialDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Enqueue(MailJob{To: "anna@example.com", Subject: "Receipt", Body: "Thanks"})

	require.Eventually(t, func() bool {
		return sender.sentCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "anna@example.com", sender.sent[0].To)
}

func TestMailWorkerRetriesTransientFailures(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{failures: 2}
	w := NewMailWorker(sender, &logger)
	w.retryPolicy.InitialDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Enqueue(MailJob{To: "anna@example.com", Subject: "Receipt"})

	// Two failures then success on the third attempt.
	require.Eventually(t, func() bool {
		return sender.sentCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMailWorkerDropsAfterMaxAttempts(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{failures: 100}
	w := NewMailWorker(sender, &logger)
	w.retryPolicy.InitialDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Enqueue(MailJob{To: "anna@example.com", Subject: "Receipt"})

	// Attempts are exhausted and the job is dropped, not redelivered.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sender.sentCount())
}

func TestMailWorkerEnqueueNeverBlocks(t *testing.T) {
	logger := zerolog.Nop()
	sender := &recordingSender{}
	w := NewMailWorker(sender, &logger)

	// No Run goroutine: fill the queue beyond capacity; extra jobs drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(w.queue)+10; i++ {
			w.Enqueue(MailJob{To: "a@example.com"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}
