// Package notify delivers user notifications read from the notifications topic.
package notify

import (
	"context"
	"encoding/json"

	"github.com/Domenick1991/servicehub/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Sender writes notifications to the log. It stands in for a mail or push
// gateway, which lives outside this service.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, n kafka.Notification) error {
	s.logger.Info("notification",
		zap.String("type", n.Type),
		zap.Int64("recipient_id", n.RecipientID),
		zap.Int64("booking_id", n.BookingID),
		zap.Int64("payment_id", n.PaymentID),
		zap.String("message", n.Message),
	)
	return nil
}

// Handle is a kafka.Consumer handler. Malformed messages are logged and
// skipped so one bad record does not stall the consumer group.
func (s *Sender) Handle(ctx context.Context, msg kafkago.Message) error {
	var n kafka.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		s.logger.Warn("skipping malformed notification",
			zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	return s.Send(ctx, n)
}
