package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailSender records outgoing mail in the log instead of delivering it.
// Actual SMTP transport is owned by the surrounding platform; this keeps the
// receipt pipeline exercised in development and tests.
type LogMailSender struct {
	From   string
	Logger *zerolog.Logger
}

func (s *LogMailSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.Info().
		Str("from", s.From).
		Str("to", to).
		Str("subject", subject).
		Int("body_len", len(body)).
		Msg("mail queued for delivery")
	return nil
}
