package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// AdminFeedChannel is the cross-process control channel the REST servers
// publish conversation-level events on; the ws server bridges it into the
// admin notification channel.
const AdminFeedChannel = "dormlink:chat:admin"

func RoomChannel(roomID string) string {
	return "dormlink:chat:room:" + roomID
}

// Publisher pushes ServerEvents into Redis so processes without a socket
// hub (the REST servers) can reach live rooms and admins.
type Publisher struct {
	redisClient *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redisClient: redisClient}
}

func (p *Publisher) PublishRoom(ctx context.Context, roomID string, ev *ServerEvent) error {
	if roomID == "" {
		return fmt.Errorf("chat publish: roomID required")
	}
	return p.publish(ctx, RoomChannel(roomID), ev)
}

func (p *Publisher) PublishAdminFeed(ctx context.Context, ev *ServerEvent) error {
	return p.publish(ctx, AdminFeedChannel, ev)
}

func (p *Publisher) publish(ctx context.Context, channel string, ev *ServerEvent) error {
	if p == nil || p.redisClient == nil {
		return fmt.Errorf("chat publish: redis client not initialised")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("chat publish: marshal payload: %w", err)
	}

	if err := p.redisClient.Publish(ctx, channel, string(payload)).Err(); err != nil {
		return fmt.Errorf("chat publish: redis publish: %w", err)
	}
	return nil
}
