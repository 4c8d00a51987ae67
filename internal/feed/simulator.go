package feed

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

// FieldPublisher is the best-effort producer contract the simulator publishes through.
type FieldPublisher interface {
	Publish(ctx context.Context, date, field, value string, meta lottery.Metadata) *lottery.RevealEvent
}

// Simulator stands in for the live draw: it publishes a fixed schedule at a fixed cadence.
type Simulator struct {
	publisher FieldPublisher
	steps     []Step
	clock     clockwork.Clock
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithClock replaces the real clock, e.g. with a clockwork.FakeClock in tests.
func WithClock(clock clockwork.Clock) SimulatorOption {
	return func(s *Simulator) {
		s.clock = clock
	}
}

// WithSteps replaces the mock schedule.
func WithSteps(steps []Step) SimulatorOption {
	return func(s *Simulator) {
		s.steps = steps
	}
}

func NewSimulator(publisher FieldPublisher, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		publisher: publisher,
		steps:     MockSchedule(DefaultDelay),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run publishes every step in order, waiting each step's delay after publishing it.
// onStep, if set, is called with every step as soon as it has been published,
// whether or not the publish itself succeeded. Run stops early when ctx is done.
func (s *Simulator) Run(ctx context.Context, date string, meta lottery.Metadata, onStep func(lottery.RevealEvent)) error {
	log.Info().Str("draw_date", date).Int("steps", len(s.steps)).Msg("draw simulation started")

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.publisher.Publish(ctx, date, step.Field, step.Value, meta)
		if onStep != nil {
			onStep(lottery.RevealEvent{
				DrawDate: date,
				Field:    step.Field,
				Value:    step.Value,
				Metadata: meta,
			})
		}

		if i == len(s.steps)-1 || step.Delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(step.Delay):
		}
	}

	log.Info().Str("draw_date", date).Msg("draw simulation finished")
	return nil
}
