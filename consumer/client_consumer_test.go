package consumer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newIdleConsumer() *ClientConsumer {
	return &ClientConsumer{
		log:      zap.NewNop(),
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func waitStopped(t *testing.T, c *ClientConsumer) {
	t.Helper()
	select {
	case <-c.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not exit")
	}
}

func TestConsumerExitsOnContextCancel(t *testing.T) {
	c := newIdleConsumer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Start(ctx)
	waitStopped(t, c)
}

func TestConsumerExitsOnShutdown(t *testing.T) {
	c := newIdleConsumer()
	close(c.shutdown)

	c.Start(context.Background())
	waitStopped(t, c)
}
