package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers operational notifications. Every caller treats
// delivery as best-effort: failures are logged, never propagated.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) (SendResult, error)
}
