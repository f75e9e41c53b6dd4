package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Mailer queues a transactional email. Implemented by the background job
// client; nil disables email delivery.
type Mailer interface {
	SendQueued(ctx context.Context, to, subject, body string) error
}

// Dispatcher fans an event out to the Kafka stream and, for customer-facing
// events, to the email queue. Both legs are best-effort.
type Dispatcher struct {
	producer *Producer
	mailer   Mailer
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher. producer and mailer may each be nil.
func NewDispatcher(producer *Producer, mailer Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{producer: producer, mailer: mailer, logger: logger}
}

type envelope struct {
	Event      string `json:"event"`
	OccurredAt string `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

// Dispatch publishes the event. Errors are logged, never returned: a failed
// notification must not roll back the transition that caused it.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, payload any) {
	if d == nil {
		return
	}
	if d.producer != nil {
		body, err := json.Marshal(envelope{
			Event:      event,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
			Payload:    payload,
		})
		if err != nil {
			d.logger.Error("marshal event", slog.String("event", event), slog.Any("error", err))
		} else if !d.producer.Publish([]byte(event), body) {
			d.logger.Warn("event stream backlogged, message dropped", slog.String("event", event))
		}
	}
	d.email(ctx, event, payload)
}

func (d *Dispatcher) email(ctx context.Context, event string, payload any) {
	if d.mailer == nil {
		return
	}
	fields, ok := payload.(map[string]any)
	if !ok {
		return
	}
	to, _ := fields["email"].(string)
	if to == "" {
		return
	}

	var subject, body string
	switch event {
	case EventQuoteSent:
		subject = fmt.Sprintf("Your quote %v is ready", fields["quote_number"])
		body = fmt.Sprintf("Quote total %v %v, deposit due %v.", fields["currency"], fields["total"], fields["deposit"])
	case EventOrderConfirmed:
		subject = fmt.Sprintf("Order %v confirmed", fields["order_number"])
		body = fmt.Sprintf("Your order from quote %v is confirmed.", fields["quote_number"])
	case EventPaymentReceived:
		subject = fmt.Sprintf("Payment %v received", fields["payment_number"])
		body = fmt.Sprintf("We received %v %v against order %v.", fields["currency"], fields["amount"], fields["order_number"])
	case EventOrderStatusChanged:
		subject = fmt.Sprintf("Order %v update", fields["order_number"])
		body = fmt.Sprintf("Your order is now %v.", fields["status"])
	default:
		return
	}

	if err := d.mailer.SendQueued(ctx, to, subject, body); err != nil {
		d.logger.Warn("queue notification email",
			slog.String("event", event), slog.String("to", to), slog.Any("error", err))
	}
}
