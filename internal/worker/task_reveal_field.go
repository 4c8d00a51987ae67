package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

// PayloadRevealField contain all data of the task that we want to store in Redis.
type PayloadRevealField struct {
	DrawDate string           `json:"draw_date"`
	Field    string           `json:"field"`
	Value    string           `json:"value"`
	Metadata lottery.Metadata `json:"metadata"`
}

// RevealTaskID dedupes the same reveal observed by several instances.
func RevealTaskID(payload *PayloadRevealField) string {
	return fmt.Sprintf("reveal:%s:%s:%s", payload.DrawDate, payload.Field, payload.Value)
}

func (distributor *RedisTaskDistributor) DistributeTaskRevealField(
	ctx context.Context,
	payload *PayloadRevealField,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := RevealTaskID(payload)
	opts = append([]asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Retention(2 * time.Hour),
	}, opts...)
	task := asynq.NewTask(TaskRevealField, jsonPayload, append(opts, asynq.TaskID(taskID))...)

	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Debug().Str("task_id", taskID).Msg("reveal already queued")
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Str("draw_date", payload.DrawDate).
		Str("field", payload.Field).
		Str("queue", info.Queue).
		Int("max_retry", info.MaxRetry).
		Msg("reveal task enqueued")

	return nil
}

// ProcessTaskRevealField đẩy kết quả nhận từ nguồn ngoài vào cùng luồng publish với bộ mô phỏng.
func (processor *RedisTaskProcessor) ProcessTaskRevealField(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadRevealField
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}
	if !lottery.IsField(payload.Field) {
		return fmt.Errorf("unknown field %q: %w", payload.Field, asynq.SkipRetry)
	}

	ev, err := processor.publisher.Deliver(ctx, payload.DrawDate, payload.Field, payload.Value, payload.Metadata)
	if err != nil {
		// asynq retries the task; the feed poller will not enqueue this value again.
		return fmt.Errorf("failed to publish reveal: %w", err)
	}
	if ev == nil {
		log.Debug().Str("draw_date", payload.DrawDate).Str("field", payload.Field).Msg("reveal skipped")
		return nil
	}

	log.Info().Str("type", task.Type()).
		Str("draw_date", payload.DrawDate).
		Str("field", payload.Field).
		Msg("task processed")

	return nil
}
