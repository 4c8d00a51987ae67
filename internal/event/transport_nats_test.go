package event_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/katatrina/xsmb-live/internal/event"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNATSTransport(t *testing.T) *event.NATSTransport {
	t.Helper()

	srv := natsserver.RunRandClientPortServer()
	t.Cleanup(srv.Shutdown)

	config := event.DefaultNATSConfig()
	config.URL = srv.ClientURL()
	transport, err := event.NewNATSTransport(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transport.Close() })
	return transport
}

func TestNATSTransportDeliversInOrder(t *testing.T) {
	transport := newNATSTransport(t)
	ctx := context.Background()
	channel := event.ChannelName(dateA)

	sub, err := transport.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, transport.Publish(ctx, channel, []byte(fmt.Sprintf("%d", i))))
	}

	for i := 0; i < 10; i++ {
		select {
		case msg := <-sub.Messages():
			assert.Equal(t, channel, msg.Channel)
			assert.Equal(t, fmt.Sprintf("%d", i), string(msg.Payload))
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not delivered", i)
		}
	}
}

func TestNATSSubscriptionClose(t *testing.T) {
	transport := newNATSTransport(t)
	ctx := context.Background()

	sub, err := transport.Subscribe(ctx, event.ChannelName(dateA))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("messages not closed after Close")
	}
}

func TestSSEServerOverNATS(t *testing.T) {
	server := event.NewSSEServer(newNATSTransport(t))
	ctx := context.Background()

	client, err := server.Register(ctx, dateA)
	require.NoError(t, err)
	other, err := server.Register(ctx, dateB)
	require.NoError(t, err)
	defer server.Unregister(client)
	defer server.Unregister(other)

	require.NoError(t, server.Broadcast(ctx, reveal(dateA, "firstPrize_0", "12345")))
	require.NoError(t, server.Broadcast(ctx, reveal(dateA, "secondPrize_0", "67890")))

	got := receive(t, client, 2)
	assert.Equal(t, "firstPrize_0", got[0].Field)
	assert.Equal(t, "secondPrize_0", got[1].Field)

	select {
	case ev := <-other.Events():
		t.Fatalf("client of %s received %+v", dateB, ev)
	case <-time.After(100 * time.Millisecond):
	}
}
