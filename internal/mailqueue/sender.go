package mailqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

type Sender interface {
	Send(ctx context.Context, to, subject, text string) error
}

// Mailgun delivers plain-text mail through the Mailgun API.
type Mailgun struct {
	client *mg.MailgunImpl
	sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), sender: sender}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return classifySendError(err)
}

// classifySendError marks client errors as permanent. 429 stays retryable.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	var ue *mg.UnexpectedResponseError
	if errors.As(err, &ue) && ue.Actual >= 400 && ue.Actual < 500 && ue.Actual != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	}
	return err
}

// LogSender only logs; used when mail sending is disabled.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, text string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("mail sending disabled; not delivering",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(text)),
	)
	return nil
}
