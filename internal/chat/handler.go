package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"dormlink-backend/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler owns the socket lifecycle: upgrade, event dispatch, and the
// Redis bridges that let the REST servers reach live connections.
type Handler struct {
	registry    *Registry
	resolver    *Resolver
	router      *Router
	admin       *AdminChannel
	store       Store
	redisClient *redis.Client
}

func NewHandler(registry *Registry, resolver *Resolver, router *Router, admin *AdminChannel, store Store, redisClient *redis.Client) *Handler {
	if store == nil {
		store = NopStore{}
	}
	return &Handler{
		registry:    registry,
		resolver:    resolver,
		router:      router,
		admin:       admin,
		store:       store,
		redisClient: redisClient,
	}
}

// Chat upgrades the connection. Identity is resolved lazily on the first
// join event; until then the connection is an anonymous guest in no room.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	cl := &WSClient{
		Conn:      conn,
		Message:   make(chan *ServerEvent, 16),
		ID:        uuid.NewString(),
		Identity:  Identity{Kind: IdentityGuest},
		authToken: r.URL.Query().Get("token"),
		done:      make(chan struct{}),
	}
	incConnections()

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h)
	return nil
}

func (h *Handler) handleEvent(cl *WSClient, ev ClientEvent) {
	switch ev.Type {
	case EventJoinPrivateChat:
		h.handleJoinPrivate(cl, ev)
	case EventJoinAdminRoom:
		h.handleJoinAdmin(cl, ev)
	case EventOpenRoom:
		h.handleOpenRoom(cl, ev)
	case EventSendMessage:
		if _, rerr := h.router.Route(cl, ev); rerr != nil {
			cl.sendError(rerr)
		}
	}
}

func (h *Handler) handleJoinPrivate(cl *WSClient, ev ClientEvent) {
	grant, err := h.resolver.ResolvePrivate(cl.authToken, ev.Name, ev.RoomID)
	if err != nil {
		cl.sendError(newError(ErrorCodeValidation, "unable to resolve identity", err))
		return
	}

	cl.Identity = grant.Identity
	created, jerr := h.registry.Join(grant.RoomID, cl, &grant.Meta)
	if jerr != nil {
		cl.sendError(jerr)
		return
	}

	if created {
		h.onRoomCreated(grant.RoomID)
	}

	cl.Send(&ServerEvent{
		Type:         EventJoined,
		RoomID:       grant.RoomID,
		SessionToken: grant.SessionToken,
	})
}

func (h *Handler) handleJoinAdmin(cl *WSClient, ev ClientEvent) {
	identity, aerr := h.resolver.ResolveAdmin(cl.authToken, ev.Name)
	if aerr != nil {
		// Connection stays a guest; the widget is still usable.
		cl.sendError(aerr)
		return
	}

	cl.Identity = identity
	h.registry.JoinAdminChannel(cl)
	cl.Send(&ServerEvent{Type: EventJoined})
}

// handleOpenRoom moves an operator into a specific room and clears its
// unread badge. Only the resolver path may create rooms, so an unknown id
// is a RoomNotFound rejection.
func (h *Handler) handleOpenRoom(cl *WSClient, ev ClientEvent) {
	if cl.Identity.Kind != IdentityAdmin {
		cl.sendError(newError(ErrorCodeValidation, "only admins open rooms by id", nil))
		return
	}

	if _, jerr := h.registry.Join(ev.RoomID, cl, nil); jerr != nil {
		cl.sendError(jerr)
		return
	}

	h.registry.ResetUnread(ev.RoomID)
	cl.Send(&ServerEvent{Type: EventJoined, RoomID: ev.RoomID})
}

func (h *Handler) onRoomCreated(roomID string) {
	room, ok := h.registry.Room(roomID)
	if !ok {
		return
	}

	go h.persistRoom(room)
	go h.subscribeRoomChannel(roomID)
	h.admin.AnnounceNewConversation(room, room.LastActivityAt)
}

func (h *Handler) persistRoom(room RoomSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := room.LastActivityAt.UTC().Format(time.RFC3339Nano)
	item := model.ChatRoomItem{
		RoomID:        room.RoomID,
		Kind:          room.Kind,
		DisplayName:   room.DisplayName,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
	}
	if err := h.store.CreateRoom(ctx, item); err != nil {
		log.Printf("persistence failure: store room %s: %v", room.RoomID, err)
	}
}

// subscribeRoomChannel bridges REST-originated room events (read
// receipts, admin-initiated notices) into the live room.
func (h *Handler) subscribeRoomChannel(roomID string) {
	if h.redisClient == nil {
		return
	}

	subscriber := h.redisClient.Subscribe(context.Background(), RoomChannel(roomID))
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		var ev ServerEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("room channel %s: malformed payload: %v", roomID, err)
			continue
		}
		h.registry.BroadcastRoom(roomID, &ev)
	}
}

// SubscribeAdminFeed consumes the cross-process control channel. The REST
// servers publish here when an operator starts an admin-initiated room or
// marks one read.
func (h *Handler) SubscribeAdminFeed() {
	if h.redisClient == nil {
		return
	}

	go func() {
		subscriber := h.redisClient.Subscribe(context.Background(), AdminFeedChannel)
		defer subscriber.Close()

		ch := subscriber.Channel()
		for msg := range ch {
			var ev ServerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("admin feed: malformed payload: %v", err)
				continue
			}
			h.dispatchFeedEvent(&ev)
		}
	}()
}

func (h *Handler) dispatchFeedEvent(ev *ServerEvent) {
	switch ev.Type {
	case EventNewConversation:
		created := h.registry.EnsureRoom(ev.RoomID, CreateMeta{
			Kind:        model.RoomKindAdminInitiated,
			DisplayName: ev.UserName,
		})
		if created {
			go h.subscribeRoomChannel(ev.RoomID)
		}
		if h.registry.MarkAnnounced(ev.RoomID) {
			h.registry.BroadcastAdmins(ev)
		}
	case EventConversationActivity:
		h.registry.ResetUnread(ev.RoomID)
		h.registry.BroadcastAdmins(ev)
	default:
		h.registry.BroadcastAdmins(ev)
	}
}

// StartReaper expires dormant rooms on a fixed cadence. Durable history
// survives; only the in-memory registry entry is dropped.
func (h *Handler) StartReaper(interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if n := h.registry.ExpireIdle(ttl); n > 0 {
				log.Printf("expired %d idle rooms", n)
			}
		}
	}()
}

// Rooms serves the live-room snapshot for the operator dashboard.
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.registry.ListActive()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rooms)
}
