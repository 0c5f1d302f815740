package chat

import (
	"sort"
	"sync"
	"time"

	"dormlink-backend/internal/model"
)

// Room is one live conversation thread. Participants are transient socket
// handles; durable history lives in the store, not here.
type Room struct {
	ID             string
	Kind           model.RoomKind
	DisplayName    string
	TenantID       string
	Clients        map[string]*WSClient
	LastActivityAt time.Time
	UnreadCount    int
	announced      bool
}

// CreateMeta authorizes lazy room creation on join. Only the resolver's
// first-join path and the admin-initiated flow pass it; a bare Join on an
// unknown room is rejected.
type CreateMeta struct {
	Kind        model.RoomKind
	DisplayName string
	TenantID    string
}

// Registry owns the room map and the admin broadcast set. Every mutation
// of membership goes through Join/Leave under the single mutex; transport
// code never touches rooms directly.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	admins map[string]*WSClient
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		admins: make(map[string]*WSClient),
		now:    time.Now,
	}
}

// Join adds the connection to the room, creating the room when meta is
// present. Re-joining the same room from the same connection is a no-op;
// joining a different room moves the connection.
func (r *Registry) Join(roomID string, cl *WSClient, meta *CreateMeta) (created bool, err *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		if meta == nil {
			return false, newError(ErrorCodeRoomNotFound, "room does not exist", nil)
		}
		room = &Room{
			ID:             roomID,
			Kind:           meta.Kind,
			DisplayName:    meta.DisplayName,
			TenantID:       meta.TenantID,
			Clients:        make(map[string]*WSClient),
			LastActivityAt: r.now(),
		}
		r.rooms[roomID] = room
		setRooms(len(r.rooms))
		created = true
	}

	if cl.JoinedRoomID == roomID {
		return created, nil
	}
	if cl.JoinedRoomID != "" {
		r.detachLocked(cl)
	}

	room.Clients[cl.ID] = cl
	cl.JoinedRoomID = roomID
	return created, nil
}

// EnsureRoom creates the room without joining anyone, used by the
// admin-initiated flow where an operator targets a tenant before either
// side has a socket in the room.
func (r *Registry) EnsureRoom(roomID string, meta CreateMeta) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; ok {
		return false
	}
	r.rooms[roomID] = &Room{
		ID:             roomID,
		Kind:           meta.Kind,
		DisplayName:    meta.DisplayName,
		TenantID:       meta.TenantID,
		Clients:        make(map[string]*WSClient),
		LastActivityAt: r.now(),
	}
	setRooms(len(r.rooms))
	return true
}

// JoinAdminChannel subscribes an admin connection to the notification
// broadcast group, independent of any joined room.
func (r *Registry) JoinAdminChannel(cl *WSClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[cl.ID]; ok {
		return
	}
	r.admins[cl.ID] = cl
}

// Leave removes the connection from its room and from the admin channel,
// and closes its outbound queue. It runs on every disconnect path and is
// idempotent.
func (r *Registry) Leave(cl *WSClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.admins, cl.ID)
	r.detachLocked(cl)

	if !cl.queueClosed {
		cl.queueClosed = true
		close(cl.Message)
		decConnections()
	}
}

// detachLocked removes the client from whichever room it occupies. Caller
// holds r.mu.
func (r *Registry) detachLocked(cl *WSClient) {
	if cl.JoinedRoomID == "" {
		return
	}
	if room, ok := r.rooms[cl.JoinedRoomID]; ok {
		delete(room.Clients, cl.ID)
	}
	cl.JoinedRoomID = ""
}

func (r *Registry) Touch(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[roomID]; ok {
		room.LastActivityAt = r.now()
	}
}

func (r *Registry) BumpUnread(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	room.UnreadCount++
	return room.UnreadCount
}

func (r *Registry) ResetUnread(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[roomID]; ok {
		room.UnreadCount = 0
	}
}

// MarkAnnounced flips the room's new-conversation flag, reporting whether
// this call was the first. The admin channel fires new_conversation only
// on the first.
func (r *Registry) MarkAnnounced(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok || room.announced {
		return false
	}
	room.announced = true
	return true
}

func (r *Registry) Room(roomID string) (RoomSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSummary{}, false
	}
	return summarize(room), true
}

// ListActive returns a snapshot ordered by last activity, newest first.
func (r *Registry) ListActive() []RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, summarize(room))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}

// BroadcastRoom queues the event on every participant of the room. A
// participant whose queue is full is dropped from the room, matching the
// disconnect path.
func (r *Registry) BroadcastRoom(roomID string, ev *ServerEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	delivered := r.fanOutLocked(room.Clients, ev)
	if delivered > 0 {
		addDelivered(delivered)
	}
	return delivered
}

// BroadcastAdmins queues the event once per connected admin.
func (r *Registry) BroadcastAdmins(ev *ServerEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivered := r.fanOutLocked(r.admins, ev)
	if delivered > 0 {
		addDelivered(delivered)
	}
	return delivered
}

// fanOutLocked queues the event per client. A client whose queue is full
// is treated as disconnected and fully deregistered. Caller holds r.mu.
func (r *Registry) fanOutLocked(clients map[string]*WSClient, ev *ServerEvent) int {
	delivered := 0
	var dead []*WSClient
	for _, cl := range clients {
		if cl.queueClosed {
			continue
		}
		select {
		case cl.Message <- ev:
			delivered++
		default:
			dead = append(dead, cl)
		}
	}
	for _, cl := range dead {
		delete(r.admins, cl.ID)
		r.detachLocked(cl)
		cl.queueClosed = true
		close(cl.Message)
		decConnections()
	}
	return delivered
}

// ExpireIdle drops rooms that have no participants and have been quiet for
// longer than ttl. Persisted history is untouched; a guest presenting a
// still-valid session token recreates the room on the resolver path.
func (r *Registry) ExpireIdle(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	expired := 0
	for id, room := range r.rooms {
		if len(room.Clients) == 0 && room.LastActivityAt.Before(cutoff) {
			delete(r.rooms, id)
			expired++
		}
	}
	if expired > 0 {
		setRooms(len(r.rooms))
	}
	return expired
}

func summarize(room *Room) RoomSummary {
	return RoomSummary{
		RoomID:         room.ID,
		Kind:           room.Kind,
		DisplayName:    room.DisplayName,
		Participants:   len(room.Clients),
		UnreadCount:    room.UnreadCount,
		LastActivityAt: room.LastActivityAt,
	}
}
