package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/katatrina/xsmb-live/internal/event"
	"github.com/katatrina/xsmb-live/internal/feed"
	"github.com/katatrina/xsmb-live/internal/lottery"
)

// DefaultKeepAliveInterval is the pause between two liveness comments.
const DefaultKeepAliveInterval = 15 * time.Second

// SnapshotReader is the read side of the draw store.
type SnapshotReader interface {
	GetFields(ctx context.Context, date string) (map[string]string, error)
	GetField(ctx context.Context, date, field string) (string, bool, error)
	GetMetadata(ctx context.Context, date string) (*lottery.Metadata, error)
}

// Config holds the tunables of a Service.
type Config struct {
	KeepAliveInterval time.Duration
	Location          *time.Location
	Clock             clockwork.Clock
}

// Service tạo các phiên SSE và dựng snapshot đã đối chiếu cho từng ngày quay.
type Service struct {
	store     SnapshotReader
	sender    event.EventSender
	simulator *feed.Simulator

	keepAlive time.Duration
	location  *time.Location
	clock     clockwork.Clock
}

func NewService(store SnapshotReader, sender event.EventSender, simulator *feed.Simulator, config Config) *Service {
	if config.KeepAliveInterval <= 0 {
		config.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Service{
		store:     store,
		sender:    sender,
		simulator: simulator,
		keepAlive: config.KeepAliveInterval,
		location:  config.Location,
		clock:     config.Clock,
	}
}

// Today returns the current draw date in the service's calendar.
func (s *Service) Today() time.Time {
	return s.clock.Now().In(s.location)
}

// DefaultMetadata is the metadata used when the store holds none.
func (s *Service) DefaultMetadata(station string) lottery.Metadata {
	return lottery.StationMetadata(station, s.Today())
}

// Snapshot đọc trạng thái đang lưu của ngày quay và đối chiếu với bộ giá trị mặc định.
// The plain-read endpoint and session bootstrap both go through here.
func (s *Service) Snapshot(ctx context.Context, date, station string) (lottery.Snapshot, error) {
	stored, err := s.store.GetFields(ctx, date)
	if err != nil {
		return lottery.Snapshot{}, fmt.Errorf("failed to get fields: %w", err)
	}

	meta, err := s.store.GetMetadata(ctx, date)
	if err != nil {
		return lottery.Snapshot{}, fmt.Errorf("failed to get metadata: %w", err)
	}

	return lottery.Reconcile(date, lottery.DefaultFields(), stored, meta, s.DefaultMetadata(station)), nil
}
