package notify

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes domain events to a Kafka topic through a buffered
// inbox, so callers never block on the broker.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	done    chan struct{}
	closeCh chan struct{}
}

// NewProducer builds an async producer for the given topic.
func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled, draining the inbox
// before closing the writer. The inbox channel is never closed: in-flight
// requests may still publish while the server drains, and those publishes
// must fail soft instead of panicking.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				close(p.done)
				for {
					select {
					case m := <-p.inbox:
						_ = p.w.WriteMessages(context.Background(), m)
					default:
						_ = p.w.Close()
						return
					}
				}
			case m := <-p.inbox:
				_ = p.w.WriteMessages(context.Background(), m)
			}
		}
	}()
}

// Publish enqueues a message. Drops when the inbox is full or the producer
// is shutting down rather than blocking a request path.
func (p *Producer) Publish(key, value []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now()}:
		return true
	default:
		return false
	}
}

// WaitClosed blocks until the flush loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
