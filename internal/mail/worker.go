package mail

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Worker drains queued messages and delivers them with Sender.
type Worker struct {
	sender Sender
}

func NewWorker(sender Sender) *Worker {
	return &Worker{sender: sender}
}

// Run processes deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		log.Error().Err(err).Msg("dropping malformed mail job")
		_ = d.Nack(false, false)
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		// One retry through the queue, then drop
		requeue := !d.Redelivered
		log.Error().Err(err).Str("to", msg.To).Bool("requeue", requeue).Msg("mail delivery failed")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
