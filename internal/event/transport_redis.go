package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/katatrina/xsmb-live/internal/store"
	"github.com/redis/go-redis/v9"
)

// RedisTransport uses Redis Pub/Sub on the shared client.
// Redis delivers messages of one channel in publish order.
type RedisTransport struct {
	provider store.ClientProvider
}

func NewRedisTransport(provider store.ClientProvider) *RedisTransport {
	return &RedisTransport{provider: provider}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	client, err := t.provider.Client(ctx)
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, payload).Err()
}

func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	client, err := t.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	pubsub := client.Subscribe(ctx, channel)
	// Chờ Redis xác nhận SUBSCRIBE trước khi trả về.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to confirm subscription: %w", err)
	}

	sub := &redisSubscription{
		pubsub:   pubsub,
		messages: make(chan Message),
	}
	go sub.forward()
	return sub, nil
}

// Close is a no-op: the client belongs to the provider.
func (t *RedisTransport) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	messages  chan Message
	closeOnce sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.messages)
	for msg := range s.pubsub.Channel() {
		s.messages <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.messages
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
