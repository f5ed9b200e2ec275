package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrTransport wraps downstream messaging failures; these are retried
// a bounded number of times before the notification is marked failed.
var ErrTransport = errors.New("message transport failed")

// Sender delivers one rendered message to a recipient address. The
// transport itself (WhatsApp, SMS, ...) is outside this core.
type Sender interface {
	Send(ctx context.Context, recipient, message string) error
}

// StubSender logs instead of sending. Used in dev and as the fallback
// when no transport is configured.
type StubSender struct {
	Log zerolog.Logger
}

func (s StubSender) Send(_ context.Context, recipient, message string) error {
	preview := message
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	s.Log.Info().Str("to", recipient).Str("preview", preview).Msg("stub sender: would deliver")
	return nil
}
