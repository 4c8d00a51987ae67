package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TaskRevealField = "draw:reveal_field"
)

/*
This file will contain the codes to create tasks and distributes them to the Redis queue.
A real result feed hands reveals to the queue instead of publishing directly, so that
several instances observing the same upstream collapse into one publish per value.
*/

type TaskDistributor interface {
	DistributeTaskRevealField(ctx context.Context, payload *PayloadRevealField, opts ...asynq.Option) error
	Close() error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisConnOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}

func (distributor *RedisTaskDistributor) Close() error {
	return distributor.client.Close()
}
