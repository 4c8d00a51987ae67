package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

// DefaultClientBuffer is how many undelivered events a client may lag behind
// before further events are dropped for it.
const DefaultClientBuffer = 64

// subscribeTimeout bounds one transport subscribe, independent of the clients waiting on it.
const subscribeTimeout = 30 * time.Second

// Client là một luồng SSE đã đăng ký nhận sự kiện của một ngày quay.
type Client struct {
	ID     string
	Date   string
	events chan lottery.RevealEvent
	topic  *topic
}

// Events delivers reveal events in publish order. It is closed on Unregister.
func (c *Client) Events() <-chan lottery.RevealEvent {
	return c.events
}

// topic holds the clients of one draw date and the upstream subscription feeding them.
// ready is closed once the subscribe attempt finished; sub and err are set before that.
type topic struct {
	ready chan struct{}

	mu       sync.Mutex
	sub      Subscription
	err      error
	clients  map[*Client]bool
	released bool
}

// SSEServer routes announcements to the clients subscribed to the same draw date.
// Each process holds at most one transport subscription per date, shared by all
// of its clients and released with the last one. s.mu only guards the topic map;
// fan-out and teardown of a date take that date's own lock.
type SSEServer struct {
	transport Transport
	buffer    int

	mu     sync.Mutex
	topics map[string]*topic
}

func NewSSEServer(transport Transport) *SSEServer {
	return &SSEServer{
		transport: transport,
		buffer:    DefaultClientBuffer,
		topics:    make(map[string]*topic),
	}
}

// Register đăng ký một client mới vào ngày quay. Khi hàm trả về, client chắc chắn
// nhận được mọi sự kiện được phát sau thời điểm này.
func (s *SSEServer) Register(ctx context.Context, date string) (*Client, error) {
	client := &Client{
		ID:     uuid.NewString(),
		Date:   date,
		events: make(chan lottery.RevealEvent, s.buffer),
	}

	s.mu.Lock()
	t, ok := s.topics[date]
	if ok {
		t.mu.Lock()
		if t.released {
			ok = false
		} else {
			t.clients[client] = true
		}
		t.mu.Unlock()
	}
	if !ok {
		t = &topic{
			ready:   make(chan struct{}),
			clients: map[*Client]bool{client: true},
		}
		s.topics[date] = t
		go s.subscribe(date, t)
	}
	client.topic = t
	s.mu.Unlock()

	select {
	case <-t.ready:
	case <-ctx.Done():
		s.Unregister(client)
		return nil, ctx.Err()
	}

	if t.err != nil {
		s.Unregister(client)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChannelName(date), t.err)
	}

	log.Info().
		Str("draw_date", date).
		Str("client_id", client.ID).
		Int("total_clients", s.ClientCount(date)).
		Msg("client registered")

	return client, nil
}

// subscribe opens the upstream subscription of a topic, then relays it.
// It runs detached from any caller so a departing client cannot fail the others.
func (s *SSEServer) subscribe(date string, t *topic) {
	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	sub, err := s.transport.Subscribe(ctx, ChannelName(date))
	cancel()

	t.mu.Lock()
	t.sub, t.err = sub, err
	released := t.released
	t.mu.Unlock()
	close(t.ready)

	if err != nil {
		log.Error().Err(err).Str("draw_date", date).Msg("failed to subscribe")
		s.mu.Lock()
		if s.topics[date] == t {
			delete(s.topics, date)
		}
		s.mu.Unlock()
		return
	}

	// Mọi client đã rời đi trong lúc chờ subscribe.
	if released {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("draw_date", date).Msg("failed to close subscription")
		}
		return
	}

	s.relay(date, t)
}

// Unregister hủy đăng ký client và đóng hàng đợi của nó.
// The upstream subscription is released with the last client of the date.
func (s *SSEServer) Unregister(client *Client) {
	t := client.topic
	if t == nil {
		return
	}

	t.mu.Lock()
	if !t.clients[client] {
		t.mu.Unlock()
		return
	}
	delete(t.clients, client)
	close(client.events)
	remaining := len(t.clients)

	var sub Subscription
	if remaining == 0 {
		t.released = true
		sub = t.sub
	}
	t.mu.Unlock()

	if remaining == 0 {
		s.mu.Lock()
		if s.topics[client.Date] == t {
			delete(s.topics, client.Date)
		}
		s.mu.Unlock()
	}

	if sub != nil {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("draw_date", client.Date).Msg("failed to close subscription")
		}
	}

	log.Info().
		Str("draw_date", client.Date).
		Str("client_id", client.ID).
		Int("remaining_clients", remaining).
		Msg("client unregistered")
}

// Broadcast phát sự kiện lên kênh của ngày quay. Mọi instance đang có client của ngày đó đều nhận được.
func (s *SSEServer) Broadcast(ctx context.Context, ev lottery.RevealEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode reveal event: %w", err)
	}
	if err := s.transport.Publish(ctx, ChannelName(ev.DrawDate), payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ChannelName(ev.DrawDate), err)
	}
	return nil
}

// ClientCount returns the number of clients registered for date on this process.
func (s *SSEServer) ClientCount(date string) int {
	s.mu.Lock()
	t, ok := s.topics[date]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// relay xử lý luồng sự kiện của một ngày quay cho tới khi subscription bị đóng.
func (s *SSEServer) relay(date string, t *topic) {
	for msg := range t.sub.Messages() {
		ev, err := lottery.DecodeRevealEvent(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("discarding broker message")
			continue
		}
		if ev.DrawDate != date {
			log.Warn().Str("channel", msg.Channel).Str("event_date", ev.DrawDate).Msg("discarding event for another draw date")
			continue
		}

		// Non-blocking sends under the topic lock: a slow client loses this event
		// but never stalls the others, and Unregister cannot close a queue mid-send.
		t.mu.Lock()
		for client := range t.clients {
			select {
			case client.events <- ev:
			default:
				log.Warn().
					Str("draw_date", date).
					Str("client_id", client.ID).
					Str("field", ev.Field).
					Msg("client queue full, dropping event")
			}
		}
		t.mu.Unlock()
	}
}
