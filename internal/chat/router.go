package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Router validates inbound send_message events and fans the accepted
// Message out to the room plus the admin channel. Acceptance is
// serialized under rt.mu, so every participant observes messages in the
// order the router accepted them; client clocks are untrusted.
type Router struct {
	mu       sync.Mutex
	registry *Registry
	store    Store
	admin    *AdminChannel
	now      func() time.Time
	newID    func() string
}

func NewRouter(registry *Registry, store Store, admin *AdminChannel) *Router {
	if store == nil {
		store = NopStore{}
	}
	return &Router{
		registry: registry,
		store:    store,
		admin:    admin,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (rt *Router) Route(cl *WSClient, ev ClientEvent) (Message, *Error) {
	isAdmin := cl.Identity.Kind == IdentityAdmin

	var roomID string
	if isAdmin {
		roomID = strings.TrimSpace(ev.RoomID)
		if roomID == "" {
			return Message{}, newError(ErrorCodeValidation, "roomId is required for admin messages", nil)
		}
	} else {
		roomID = cl.JoinedRoomID
		if roomID == "" {
			return Message{}, newError(ErrorCodeNotInRoom, "join a room before sending", nil)
		}
	}

	body := strings.TrimSpace(ev.Message)
	if body == "" {
		return Message{}, newError(ErrorCodeEmptyMessage, "message body is empty", nil)
	}

	rt.mu.Lock()
	room, ok := rt.registry.Room(roomID)
	if !ok {
		rt.mu.Unlock()
		return Message{}, newError(ErrorCodeRoomNotFound, "room does not exist", nil)
	}

	msg := Message{
		ID:         rt.newID(),
		RoomID:     roomID,
		SenderID:   cl.Identity.ID,
		SenderName: cl.Identity.Name,
		IsAdmin:    isAdmin,
		Body:       body,
		Timestamp:  rt.now(),
	}

	rt.registry.Touch(roomID)
	room.LastActivityAt = msg.Timestamp
	if !isAdmin {
		room.UnreadCount = rt.registry.BumpUnread(roomID)
	}

	rt.registry.BroadcastRoom(roomID, msg.Event())
	rt.admin.AnnounceActivity(room, msg)
	rt.mu.Unlock()

	go rt.persist(msg, room.UnreadCount)

	return msg, nil
}

// persist runs off the delivery path. Storage being down degrades
// durability, not chat availability.
func (rt *Router) persist(msg Message, unread int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rt.store.CreateMessage(ctx, msg.Item()); err != nil {
		log.Printf("persistence failure: store message %s in room %s: %v", msg.ID, msg.RoomID, err)
	}
	lastMessageAt := msg.Timestamp.UTC().Format(time.RFC3339Nano)
	if err := rt.store.TouchRoom(ctx, msg.RoomID, lastMessageAt, unread); err != nil {
		log.Printf("persistence failure: touch room %s: %v", msg.RoomID, err)
	}
}
