// internal/channels/channels.go
package channels

import "context"

// Sender delivers one rendered message to one channel-specific recipient
// address. Senders are best-effort and side-effect-only; a returned error is
// recorded as a failed delivery, never retried by the engine.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, recipient, subject, body string) error

func (f SenderFunc) Send(ctx context.Context, recipient, subject, body string) error {
	return f(ctx, recipient, subject, body)
}
