package history

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"dormlink-backend/internal/chat"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/model"
	"dormlink-backend/internal/session"
)

type memoryRepository struct {
	mu       sync.Mutex
	rooms    map[string]model.ChatRoomItem
	messages map[string][]model.ChatMessageItem
	tenants  map[string]model.TenantItem
	admins   map[string]model.AdminItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		rooms:    make(map[string]model.ChatRoomItem),
		messages: make(map[string][]model.ChatMessageItem),
		tenants:  make(map[string]model.TenantItem),
		admins:   map[string]model.AdminItem{"adm-1": {AdminID: "adm-1", Name: "Officer"}},
	}
}

func (m *memoryRepository) CreateRoom(ctx context.Context, room model.ChatRoomItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.RoomID]; ok {
		return nil
	}
	m.rooms[room.RoomID] = room
	return nil
}

func (m *memoryRepository) GetRoom(ctx context.Context, roomID string) (model.ChatRoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return model.ChatRoomItem{}, ErrNotFound
	}
	return room, nil
}

func (m *memoryRepository) TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.LastMessageAt = lastMessageAt
	room.UpdatedAt = lastMessageAt
	room.UnreadCount = unread
	m.rooms[roomID] = room
	return nil
}

func (m *memoryRepository) ListRoomsOrderedByActivity(ctx context.Context, limit int) ([]model.ChatRoomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]model.ChatRoomItem, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt > rooms[j].LastMessageAt
	})
	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, nil
}

func (m *memoryRepository) CreateMessage(ctx context.Context, message model.ChatMessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.RoomID] = append(m.messages[message.RoomID], message)
	return nil
}

func (m *memoryRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]model.ChatMessageItem(nil), m.messages[roomID]...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt < items[j].CreatedAt
	})
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (m *memoryRepository) MarkRead(ctx context.Context, roomID, readAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.UnreadCount = 0
	room.ReadAt = readAt
	room.UpdatedAt = readAt
	m.rooms[roomID] = room
	return nil
}

func (m *memoryRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant, ok := m.tenants[tenantID]
	if !ok {
		return model.TenantItem{}, ErrNotFound
	}
	return tenant, nil
}

func (m *memoryRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return model.AdminItem{}, ErrNotFound
	}
	return admin, nil
}

func useSecrets(t *testing.T) {
	t.Helper()
	originalAdmin := internaljwt.RoleSecrets[internaljwt.RoleAdmin]
	originalTenant := internaljwt.RoleSecrets[internaljwt.RoleTenant]
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "admin-secret"
	internaljwt.RoleSecrets[internaljwt.RoleTenant] = "tenant-secret"
	session.SetSecret([]byte("session-secret"))
	t.Cleanup(func() {
		internaljwt.RoleSecrets[internaljwt.RoleAdmin] = originalAdmin
		internaljwt.RoleSecrets[internaljwt.RoleTenant] = originalTenant
	})
}

func testClock() func() time.Time {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func seedRoom(repo *memoryRepository, roomID string, unread int, lastMessageAt string) {
	repo.rooms[roomID] = model.ChatRoomItem{
		RoomID:        roomID,
		Kind:          model.RoomKindGuest,
		DisplayName:   "Somchai",
		UnreadCount:   unread,
		CreatedAt:     lastMessageAt,
		UpdatedAt:     lastMessageAt,
		LastMessageAt: lastMessageAt,
	}
}

func TestGuestHistory(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	seedRoom(repo, "room-1", 2, "2024-03-01T10:00:00Z")
	repo.messages["room-1"] = []model.ChatMessageItem{
		{RoomID: "room-1", MessageID: "m1", Body: "hello", CreatedAt: "2024-03-01T10:00:00Z"},
		{RoomID: "room-1", MessageID: "m2", Body: "anyone there?", CreatedAt: "2024-03-01T10:05:00Z"},
	}

	token, err := session.Sign("room-1", "Somchai", testClock()())
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	result, err := svc.GuestHistory(context.Background(), token, 50)
	if err != nil {
		t.Fatalf("GuestHistory error: %v", err)
	}
	if result.Room.RoomID != "room-1" {
		t.Fatalf("unexpected room %s", result.Room.RoomID)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result.Messages))
	}
	if result.Messages[0].MessageID != "m1" {
		t.Fatalf("messages out of order: %+v", result.Messages)
	}
}

func TestGuestHistoryRejectsInvalidToken(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	_, err := svc.GuestHistory(context.Background(), "bogus", 50)
	if err == nil {
		t.Fatal("expected error for invalid token")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if svcErr.Code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", svcErr.Code)
	}
}

func TestTenantHistoryWithoutRoomYet(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	token, err := internaljwt.CreateToken(internaljwt.Principal{Id: "t-7", Name: "Malee"}, internaljwt.RoleTenant, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("CreateToken error: %v", err)
	}

	result, err := svc.TenantHistory(context.Background(), "Bearer "+token, 50)
	if err != nil {
		t.Fatalf("TenantHistory error: %v", err)
	}
	if result.Room.RoomID != chat.TenantRoomID("t-7") {
		t.Fatalf("unexpected room %s", result.Room.RoomID)
	}
	if len(result.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(result.Messages))
	}
}

func TestListRoomsOrdersByActivity(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	seedRoom(repo, "older", 0, "2024-03-01T09:00:00Z")
	seedRoom(repo, "newer", 1, "2024-03-01T11:00:00Z")

	result, err := svc.ListRooms(context.Background(), AdminIdentity{AdminID: "adm-1"}, 10)
	if err != nil {
		t.Fatalf("ListRooms error: %v", err)
	}
	if len(result.Rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(result.Rooms))
	}
	if result.Rooms[0].RoomID != "newer" {
		t.Fatalf("expected newest first, got %s", result.Rooms[0].RoomID)
	}
}

func TestListRoomsRequiresIdentity(t *testing.T) {
	useSecrets(t)
	svc := NewWithRepository(newMemoryRepository(), testClock())

	_, err := svc.ListRooms(context.Background(), AdminIdentity{}, 10)
	if err == nil {
		t.Fatal("expected error without identity")
	}
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestListRoomsRejectsUnknownAdmin(t *testing.T) {
	useSecrets(t)
	svc := NewWithRepository(newMemoryRepository(), testClock())

	_, err := svc.ListRooms(context.Background(), AdminIdentity{AdminID: "ghost"}, 10)
	if err == nil {
		t.Fatal("expected error for unknown admin")
	}
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	seedRoom(repo, "room-1", 3, "2024-03-01T10:00:00Z")

	result, err := svc.MarkRead(context.Background(), AdminIdentity{AdminID: "adm-1"}, "room-1")
	if err != nil {
		t.Fatalf("MarkRead error: %v", err)
	}
	if result.Room.UnreadCount != 0 {
		t.Fatalf("expected unread reset, got %d", result.Room.UnreadCount)
	}
	if result.ReadAt != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected readAt %s", result.ReadAt)
	}

	stored := repo.rooms["room-1"]
	if stored.UnreadCount != 0 || stored.ReadAt != result.ReadAt {
		t.Fatalf("mark-read not persisted: %+v", stored)
	}
}

func TestMarkReadUnknownRoom(t *testing.T) {
	useSecrets(t)
	svc := NewWithRepository(newMemoryRepository(), testClock())

	_, err := svc.MarkRead(context.Background(), AdminIdentity{AdminID: "adm-1"}, "missing")
	if err == nil {
		t.Fatal("expected error for unknown room")
	}
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestOpenTenantRoom(t *testing.T) {
	useSecrets(t)
	repo := newMemoryRepository()
	svc := NewWithRepository(repo, testClock())

	repo.tenants["t-7"] = model.TenantItem{TenantID: "t-7", Name: "Malee"}

	result, err := svc.OpenTenantRoom(context.Background(), AdminIdentity{AdminID: "adm-1"}, "t-7")
	if err != nil {
		t.Fatalf("OpenTenantRoom error: %v", err)
	}
	if !result.Created {
		t.Fatal("expected room creation")
	}
	if result.Room.RoomID != chat.TenantRoomID("t-7") {
		t.Fatalf("unexpected room id %s", result.Room.RoomID)
	}
	if result.Room.Kind != model.RoomKindAdminInitiated {
		t.Fatalf("unexpected kind %s", result.Room.Kind)
	}

	again, err := svc.OpenTenantRoom(context.Background(), AdminIdentity{AdminID: "adm-1"}, "t-7")
	if err != nil {
		t.Fatalf("OpenTenantRoom error: %v", err)
	}
	if again.Created {
		t.Fatal("reopening an existing room must not recreate it")
	}
}

func TestOpenTenantRoomUnknownTenant(t *testing.T) {
	useSecrets(t)
	svc := NewWithRepository(newMemoryRepository(), testClock())

	_, err := svc.OpenTenantRoom(context.Background(), AdminIdentity{AdminID: "adm-1"}, "ghost")
	if err == nil {
		t.Fatal("expected error for unknown tenant")
	}
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != ErrorCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAdminIdentityFromAuthorizationHeader(t *testing.T) {
	useSecrets(t)
	svc := NewWithRepository(newMemoryRepository(), testClock())

	token, err := internaljwt.CreateToken(internaljwt.Principal{Id: "adm-1", Name: "Officer"}, internaljwt.RoleAdmin, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("CreateToken error: %v", err)
	}

	identity, err := svc.AdminIdentityFromAuthorizationHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("AdminIdentityFromAuthorizationHeader error: %v", err)
	}
	if identity.AdminID != "adm-1" || identity.Name != "Officer" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	if _, err := svc.AdminIdentityFromAuthorizationHeader(""); err == nil {
		t.Fatal("expected error for missing header")
	}
	if _, err := svc.AdminIdentityFromAuthorizationHeader(token); err == nil {
		t.Fatal("expected error for missing Bearer prefix")
	}
}
