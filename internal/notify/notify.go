package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	KindTransferCompleted = "transfer.completed"
	KindCreditIssued      = "credit.issued"
)

// Event is the fire-and-forget payload emitted after a committed balance
// movement. Receiver fields are zero for unilateral admin credits.
type Event struct {
	Kind                  string    `json:"kind"`
	Token                 string    `json:"token"`
	SenderID              int       `json:"sender_id,omitempty"`
	SenderUsername        string    `json:"sender_username,omitempty"`
	SenderBalanceBefore   float64   `json:"sender_balance_before,omitempty"`
	SenderBalanceAfter    float64   `json:"sender_balance_after,omitempty"`
	ReceiverID            int       `json:"receiver_id"`
	ReceiverUsername      string    `json:"receiver_username"`
	ReceiverBalanceBefore float64   `json:"receiver_balance_before"`
	ReceiverBalanceAfter  float64   `json:"receiver_balance_after"`
	Amount                float64   `json:"amount"`
	CreatedAt             time.Time `json:"created_at"`
}

// Publisher delivers events to the notification dispatcher. Delivery is
// best effort; callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher is the fallback dispatcher used when no broker is
// configured: it just records the event.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info().
		Str("kind", event.Kind).
		Str("token", event.Token).
		Int("receiver_id", event.ReceiverID).
		Float64("amount", event.Amount).
		Msg("Notification event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
