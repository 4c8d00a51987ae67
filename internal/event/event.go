package event

import (
	"context"
	"fmt"

	"github.com/katatrina/xsmb-live/internal/lottery"
)

// channelPrefix tách biệt kênh phát sóng khỏi namespace của khóa lưu trữ (xsmb:live:*).
const channelPrefix = "xsmb:channel"

// ChannelName returns the broker channel of a draw date.
// Ví dụ: "xsmb:channel:01-01-2025"
func ChannelName(date string) string {
	return fmt.Sprintf("%s:%s", channelPrefix, date)
}

// Message is one raw payload received from a transport channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a live transport subscription. Messages is closed after Close.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Transport là kênh pub/sub dùng chung giữa các instance của service (Redis hoặc NATS).
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the subscription is active, so nothing published
	// afterwards is missed.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// EventSender là interface đại diện cho broker phân phối sự kiện quay số tới các client.
type EventSender interface {
	Register(ctx context.Context, date string) (*Client, error)
	Unregister(client *Client)
	Broadcast(ctx context.Context, event lottery.RevealEvent) error
}
