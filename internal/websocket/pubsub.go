package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"flashdeck-backend/internal/models"
)

const channelPrefix = "user_updates:"

func channelName(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// RedisPubSub carries job updates between the worker pool and the hubs of
// every server instance.
type RedisPubSub struct {
	client *redis.Client
}

func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

func (p *RedisPubSub) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	return p.client.Publish(ctx, channelName(userID), data).Err()
}

func (p *RedisPubSub) Listen(ctx context.Context, userID uuid.UUID, deliver func([]byte)) {
	pubsub := p.client.Subscribe(ctx, channelName(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			deliver([]byte(msg.Payload))
		}
	}
}
