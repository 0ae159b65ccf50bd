package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClients separates blocking pub/sub subscriptions from the client used
// for tokens, caches, study state and the job queue.
type RedisClients struct {
	Main   *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mainClient := redis.NewClient(opt)
	if err := mainClient.Ping(ctx).Err(); err != nil {
		mainClient.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		mainClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Main:   mainClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Main.Close()
	r.PubSub.Close()
}
