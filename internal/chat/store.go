package chat

import (
	"context"

	"dormlink-backend/internal/model"
)

// Store is the durable-history collaborator the router writes through.
// Calls are fire-and-forget from the delivery path: a failing store is
// logged, never blocks a broadcast.
type Store interface {
	CreateRoom(ctx context.Context, room model.ChatRoomItem) error
	CreateMessage(ctx context.Context, message model.ChatMessageItem) error
	TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error
}

// NopStore backs deployments (and tests) that run the chat layer without
// durable history.
type NopStore struct{}

func (NopStore) CreateRoom(ctx context.Context, room model.ChatRoomItem) error { return nil }

func (NopStore) CreateMessage(ctx context.Context, message model.ChatMessageItem) error { return nil }

func (NopStore) TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error {
	return nil
}
