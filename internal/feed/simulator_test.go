package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMeta = lottery.Metadata{RegionName: "Miền Bắc", RegionCode: "MB", Year: 2025, Month: 1}

type recordingPublisher struct {
	mu     sync.Mutex
	fields []string
	drop   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, date, field, value string, meta lottery.Metadata) *lottery.RevealEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = append(p.fields, field)
	if p.drop {
		return nil
	}
	return &lottery.RevealEvent{DrawDate: date, Field: field, Value: value, Metadata: meta}
}

func (p *recordingPublisher) Fields() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fields...)
}

func TestMockScheduleCoversEveryFieldOnce(t *testing.T) {
	steps := MockSchedule(DefaultDelay)
	require.Len(t, steps, len(lottery.Fields()))
	for i, f := range lottery.Fields() {
		assert.Equal(t, f, steps[i].Field)
		assert.True(t, lottery.IsRevealed(steps[i].Value), f)
		assert.Equal(t, DefaultDelay, steps[i].Delay)
		if digits := lottery.FieldDigits(f); digits > 0 {
			assert.Len(t, steps[i].Value, digits, f)
		}
	}
}

func TestSimulatorWaitsBetweenSteps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &recordingPublisher{}
	sim := NewSimulator(pub, WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var events []lottery.RevealEvent
	done := make(chan error, 1)
	go func() {
		done <- sim.Run(ctx, "01-01-2025", testMeta, func(ev lottery.RevealEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		})
	}()

	// Bước đầu tiên được phát ngay, sau đó bộ mô phỏng chờ đồng hồ.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, []string{"firstPrize_0"}, pub.Fields())

	for i := 1; i < len(lottery.Fields()); i++ {
		clock.Advance(DefaultDelay)
		if i < len(lottery.Fields())-1 {
			require.NoError(t, clock.BlockUntilContext(ctx, 1))
		}
	}

	require.NoError(t, <-done)
	assert.Equal(t, lottery.Fields(), pub.Fields())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, len(lottery.Fields()))
	for i, f := range lottery.Fields() {
		assert.Equal(t, f, events[i].Field)
		assert.Equal(t, mockValues[f], events[i].Value)
		assert.Equal(t, testMeta, events[i].Metadata)
	}
}

func TestSimulatorReportsDroppedPublishes(t *testing.T) {
	pub := &recordingPublisher{drop: true}
	sim := NewSimulator(pub, WithSteps(MockSchedule(0)))

	count := 0
	require.NoError(t, sim.Run(context.Background(), "01-01-2025", testMeta, func(lottery.RevealEvent) { count++ }))
	assert.Equal(t, len(lottery.Fields()), count)
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pub := &recordingPublisher{}
	sim := NewSimulator(pub, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sim.Run(ctx, "01-01-2025", testMeta, nil)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, pub.Fields(), 1)
}
