package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/katatrina/xsmb-live/internal/publisher"
	"github.com/katatrina/xsmb-live/internal/store"
	"github.com/katatrina/xsmb-live/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	date, field, value string
	meta               lottery.Metadata
}

type fakePublisher struct {
	calls []call
	err   error
}

func (p *fakePublisher) Deliver(ctx context.Context, date, field, value string, meta lottery.Metadata) (*lottery.RevealEvent, error) {
	p.calls = append(p.calls, call{date, field, value, meta})
	if p.err != nil {
		return nil, p.err
	}
	return &lottery.RevealEvent{DrawDate: date, Field: field, Value: value, Metadata: meta}, nil
}

func TestRevealTaskID(t *testing.T) {
	id := RevealTaskID(&PayloadRevealField{DrawDate: "01-01-2025", Field: "firstPrize_0", Value: "12345"})
	assert.Equal(t, "reveal:01-01-2025:firstPrize_0:12345", id)

	other := RevealTaskID(&PayloadRevealField{DrawDate: "01-01-2025", Field: "firstPrize_0", Value: "54321"})
	assert.NotEqual(t, id, other)
}

func TestProcessTaskRevealField(t *testing.T) {
	pub := &fakePublisher{}
	processor := &RedisTaskProcessor{publisher: pub}

	meta := lottery.Metadata{RegionName: "Miền Bắc", RegionCode: "MB", Year: 2025, Month: 1}
	body, err := json.Marshal(PayloadRevealField{DrawDate: "01-01-2025", Field: "maDB", Value: "1KZ", Metadata: meta})
	require.NoError(t, err)

	require.NoError(t, processor.ProcessTaskRevealField(context.Background(), asynq.NewTask(TaskRevealField, body)))
	require.Len(t, pub.calls, 1)
	assert.Equal(t, call{"01-01-2025", "maDB", "1KZ", meta}, pub.calls[0])
}

func TestProcessTaskRevealFieldSkipsRetryOnBadPayload(t *testing.T) {
	pub := &fakePublisher{}
	processor := &RedisTaskProcessor{publisher: pub}

	err := processor.ProcessTaskRevealField(context.Background(), asynq.NewTask(TaskRevealField, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	body, _ := json.Marshal(PayloadRevealField{DrawDate: "01-01-2025", Field: "eightPrizes_0", Value: "1"})
	err = processor.ProcessTaskRevealField(context.Background(), asynq.NewTask(TaskRevealField, body))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	assert.Empty(t, pub.calls)
}

func TestProcessTaskRevealFieldRetriesWhenStoreDown(t *testing.T) {
	_, provider := testutil.NewRedis(t)
	s := store.NewDrawStore(provider, 0)
	processor := &RedisTaskProcessor{publisher: publisher.NewPublisher(s, noopBroadcaster{})}
	require.NoError(t, provider.Close())

	body, err := json.Marshal(PayloadRevealField{DrawDate: "01-01-2025", Field: "firstPrize_0", Value: "12345"})
	require.NoError(t, err)

	err = processor.ProcessTaskRevealField(context.Background(), asynq.NewTask(TaskRevealField, body))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessTaskRevealFieldSkippedPlaceholderIsDone(t *testing.T) {
	_, provider := testutil.NewRedis(t)
	s := store.NewDrawStore(provider, 0)
	processor := &RedisTaskProcessor{publisher: publisher.NewPublisher(s, noopBroadcaster{})}
	ctx := context.Background()
	require.NoError(t, s.SetField(ctx, "01-01-2025", "firstPrize_0", "12345"))

	body, err := json.Marshal(PayloadRevealField{DrawDate: "01-01-2025", Field: "firstPrize_0", Value: lottery.Sentinel})
	require.NoError(t, err)

	assert.NoError(t, processor.ProcessTaskRevealField(ctx, asynq.NewTask(TaskRevealField, body)))
	value, _, err := s.GetField(ctx, "01-01-2025", "firstPrize_0")
	require.NoError(t, err)
	assert.Equal(t, "12345", value)
}

func TestProcessTaskRevealFieldPropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	processor := &RedisTaskProcessor{publisher: pub}

	body, _ := json.Marshal(PayloadRevealField{DrawDate: "01-01-2025", Field: "maDB", Value: "1KZ"})
	err := processor.ProcessTaskRevealField(context.Background(), asynq.NewTask(TaskRevealField, body))
	assert.ErrorIs(t, err, pub.err)
	assert.Len(t, pub.calls, 1)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(ctx context.Context, ev lottery.RevealEvent) error {
	return nil
}
