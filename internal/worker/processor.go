package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

/*
 This file contains code that will pick up the tasks from the Redis queue and process them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// FieldPublisher records and announces one reveal. A nil event with a nil error
// means the reveal was skipped on purpose; an error means it should be retried.
type FieldPublisher interface {
	Deliver(ctx context.Context, date, field, value string, meta lottery.Metadata) (*lottery.RevealEvent, error)
}

type RedisTaskProcessor struct {
	server    *asynq.Server
	publisher FieldPublisher
}

func NewRedisTaskProcessor(redisOpt asynq.RedisConnOpt, publisher FieldPublisher) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Một worker cho mỗi instance. Order holds only with a single consuming
			// instance and no retries; the per-field TaskID plus the store make a
			// late or repeated reveal harmless, not ordered.
			Concurrency: 1,
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:    server,
		publisher: publisher,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskRevealField, processor.ProcessTaskRevealField)

	return processor.server.Start(mux)
}

// Shutdown waits for the running task and stops the server.
func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
