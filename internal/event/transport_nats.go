package event

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds connection settings for the NATS transport.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS connection settings.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSTransport uses core NATS subjects. A single publisher connection keeps
// per-subject order for every subscriber.
type NATSTransport struct {
	nc *nats.Conn
}

func NewNATSTransport(config NATSConfig) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name("xsmb-live"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSTransport{nc: nc}, nil
}

// Subject maps a channel name to a NATS subject ("xsmb:channel:d" -> "xsmb.channel.d").
func Subject(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (t *NATSTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.nc.Publish(Subject(channel), payload)
}

func (t *NATSTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	msgCh := make(chan *nats.Msg, 256)
	natsSub, err := t.nc.ChanSubscribe(Subject(channel), msgCh)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(channel), err)
	}
	// Flush đảm bảo server đã nhận lệnh SUB trước khi trả về.
	if err := t.nc.FlushWithContext(ctx); err != nil {
		_ = natsSub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription %s: %w", Subject(channel), err)
	}

	sub := &natsSubscription{
		channel:  channel,
		sub:      natsSub,
		in:       msgCh,
		messages: make(chan Message),
		done:     make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

func (t *NATSTransport) Close() error {
	return t.nc.Drain()
}

type natsSubscription struct {
	channel   string
	sub       *nats.Subscription
	in        chan *nats.Msg
	messages  chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// forward runs until Close; NATS never closes the channel passed to ChanSubscribe.
func (s *natsSubscription) forward() {
	defer close(s.messages)
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.in:
			select {
			case s.messages <- Message{Channel: s.channel, Payload: msg.Data}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *natsSubscription) Messages() <-chan Message {
	return s.messages
}

func (s *natsSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sub.Unsubscribe()
		close(s.done)
	})
	return err
}
