package publisher

import (
	"context"
	"fmt"

	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

// FieldStore is the part of the draw store the publisher writes through.
type FieldStore interface {
	SetField(ctx context.Context, date, field, value string) error
	SetFieldIfUnrevealed(ctx context.Context, date, field, value string) (bool, error)
	SetMetadata(ctx context.Context, date string, meta lottery.Metadata) error
}

// Broadcaster announces reveal events to every subscriber of a draw date.
type Broadcaster interface {
	Broadcast(ctx context.Context, event lottery.RevealEvent) error
}

// Publisher records newly revealed fields and announces them.
//
// Publishing is best-effort: store and broker failures are logged and the
// update is dropped, never returned to the producer, so the draw cadence
// is not held up by a slow subscriber or a store hiccup.
type Publisher struct {
	store       FieldStore
	broadcaster Broadcaster
}

func NewPublisher(store FieldStore, broadcaster Broadcaster) *Publisher {
	return &Publisher{
		store:       store,
		broadcaster: broadcaster,
	}
}

// Publish ghi nhận giá trị của một giải và phát sự kiện cho ngày quay.
// A sentinel value never overwrites a field that already holds a result.
// It returns the announced event, or nil when nothing was announced; failures
// are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, date, field, value string, meta lottery.Metadata) *lottery.RevealEvent {
	ev, err := p.Deliver(ctx, date, field, value, meta)
	if err != nil {
		log.Error().Err(err).Str("draw_date", date).Str("field", field).Msg("dropping field update")
		return nil
	}
	return ev
}

// Deliver is Publish for producers that can retry. It returns (nil, nil) when
// the update is skipped on purpose (unknown field, or a placeholder for a field
// that is already revealed) and an error when the store or broker failed.
func (p *Publisher) Deliver(ctx context.Context, date, field, value string, meta lottery.Metadata) (*lottery.RevealEvent, error) {
	logger := log.With().Str("draw_date", date).Str("field", field).Logger()

	if !lottery.IsField(field) {
		logger.Warn().Msg("ignoring publish for unknown field")
		return nil, nil
	}

	if value == lottery.Sentinel {
		written, err := p.store.SetFieldIfUnrevealed(ctx, date, field, value)
		if err != nil {
			return nil, fmt.Errorf("failed to store placeholder: %w", err)
		}
		if !written {
			logger.Debug().Msg("field already revealed, skipping placeholder")
			return nil, nil
		}
	} else if err := p.store.SetField(ctx, date, field, value); err != nil {
		return nil, fmt.Errorf("failed to store field: %w", err)
	}

	if err := p.store.SetMetadata(ctx, date, meta); err != nil {
		return nil, fmt.Errorf("failed to store metadata: %w", err)
	}

	ev := lottery.RevealEvent{
		DrawDate: date,
		Field:    field,
		Value:    value,
		Metadata: meta,
	}
	if err := p.broadcaster.Broadcast(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to announce field: %w", err)
	}

	logger.Info().Str("value", value).Int("position", lottery.FieldPosition(field)).Msg("field published")
	return &ev, nil
}
