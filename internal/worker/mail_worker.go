package worker

import (
	"context"
	"time"

	"keramika/internal/domain"
	"keramika/internal/models"

	"github.com/rs/zerolog"
)

// MailJob is a single receipt or confirmation email to deliver.
type MailJob struct {
	To      string
	Subject string
	Body    string
}

// MailWorker delivers queued emails asynchronously with bounded retries.
// Delivery is strictly best-effort: a job that exhausts its attempts is
// logged and dropped, never propagated back to the operation that queued it.
type MailWorker struct {
	sender      domain.MailSender
	queue       chan MailJob
	retryPolicy RetryPolicy
	logger      *zerolog.Logger
}

// NewMailWorker builds a worker with the studio's mail retry profile.
func NewMailWorker(sender domain.MailSender, logger *zerolog.Logger) *MailWorker {
	return &MailWorker{
		sender:      sender,
		queue:       make(chan MailJob, models.MailQueueSize),
		retryPolicy: MailRetryPolicy(),
		logger:      logger,
	}
}

// Enqueue queues a job without blocking; a full queue drops the job with a
// warning, matching the best-effort contract.
func (w *MailWorker) Enqueue(job MailJob) {
	select {
	case w.queue <- job:
	default:
		w.logger.Warn().Str("to", job.To).Str("subject", job.Subject).
			Msg("mail queue full, dropping job")
	}
}

// Run processes the queue until the context is cancelled.
func (w *MailWorker) Run(ctx context.Context) {
	w.logger.Info().Msg("mail worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("mail worker stopped")
			return
		case job := <-w.queue:
			w.deliver(ctx, job)
		}
	}
}

func (w *MailWorker) deliver(ctx context.Context, job MailJob) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err := w.sender.Send(ctx, job.To, job.Subject, job.Body); err == nil {
			if attempt > 1 {
				w.logger.Info().Str("to", job.To).Int("attempt", attempt).Msg("mail delivered after retry")
			}
			return
		} else {
			lastErr = err
		}

		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	w.logger.Error().Err(lastErr).Str("to", job.To).Str("subject", job.Subject).
		Int("attempts", w.retryPolicy.MaxRetries).Msg("mail delivery failed, dropping job")
}
