package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDropsWhenInboxFull(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "freightdesk.events", 1)

	assert.True(t, p.Publish([]byte("order"), []byte(`{"event":"order.confirmed"}`)))
	assert.False(t, p.Publish([]byte("order"), []byte(`{"event":"order.confirmed"}`)))
}

func TestPublishAfterShutdownDropsInsteadOfPanicking(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "freightdesk.events", 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()

	// Requests still draining through server.Shutdown may dispatch
	// notifications after the flush loop has exited.
	assert.False(t, p.Publish([]byte("order"), []byte(`{"event":"payment.received"}`)))
}
