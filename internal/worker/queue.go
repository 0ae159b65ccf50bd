package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	QueueName  = "queue:card-generation"
	lockPrefix = "job_lock:"
	lockTTL    = 10 * time.Minute
)

// RedisQueue is a list-backed job queue with per-job locks.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Push(ctx context.Context, payload string) error {
	return q.client.RPush(ctx, QueueName, payload).Err()
}

// Pop blocks for up to timeout. It reports false when nothing arrived.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueName).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(result) < 2 {
		return "", false, nil
	}
	return result[1], true, nil
}

// Lock claims a job so that a payload queued twice runs once at a time.
func (q *RedisQueue) Lock(ctx context.Context, jobID uuid.UUID) (bool, error) {
	return q.client.SetNX(ctx, lockPrefix+jobID.String(), "1", lockTTL).Result()
}

func (q *RedisQueue) Unlock(ctx context.Context, jobID uuid.UUID) error {
	return q.client.Del(ctx, lockPrefix+jobID.String()).Err()
}
