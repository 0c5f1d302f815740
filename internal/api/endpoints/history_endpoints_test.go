package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/dto"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/model"
	"dormlink-backend/internal/queue"
	historyservice "dormlink-backend/internal/service/history"
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
		return model.ChatRoomItem{}, historyservice.ErrNotFound
	}
	return room, nil
}

func (m *memoryRepository) TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return historyservice.ErrNotFound
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
		return historyservice.ErrNotFound
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
		return model.TenantItem{}, historyservice.ErrNotFound
	}
	return tenant, nil
}

func (m *memoryRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return model.AdminItem{}, historyservice.ErrNotFound
	}
	return admin, nil
}

func useTestSessionSecret(t *testing.T) {
	t.Helper()
	session.SetSecret([]byte("session-test-secret"))
}

func useTestRoleSecrets(t *testing.T) {
	t.Helper()
	originalTenant := internaljwt.RoleSecrets[internaljwt.RoleTenant]
	originalAdmin := internaljwt.RoleSecrets[internaljwt.RoleAdmin]
	internaljwt.RoleSecrets[internaljwt.RoleTenant] = "tenant-test-secret"
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "admin-test-secret"
	t.Cleanup(func() {
		internaljwt.RoleSecrets[internaljwt.RoleTenant] = originalTenant
		internaljwt.RoleSecrets[internaljwt.RoleAdmin] = originalAdmin
	})
}

func setupHistoryTestHandler(t *testing.T) (http.Handler, *memoryRepository) {
	t.Helper()

	repo := newMemoryRepository()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := historyservice.NewWithRepository(repo, func() time.Time { return now })

	useTestSessionSecret(t)
	useTestRoleSecrets(t)

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0/"+t.Name(), queueManager, nil, nil, nil, []string{"http://localhost:3000"})

	historyEndpoints := NewHistoryEndpoints(svc, HistoryPaths{
		RoomMessagesPrefix: "/api/public/rooms/",
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/rooms/", server.MakeHTTPHandleFunc(historyEndpoints.RoomMessages))

	t.Cleanup(queueManager.Shutdown)

	return mux, repo
}

func seedGuestRoom(t *testing.T, repo *memoryRepository, roomID string) {
	t.Helper()
	repo.rooms[roomID] = model.ChatRoomItem{
		RoomID:        roomID,
		Kind:          model.RoomKindGuest,
		DisplayName:   "Somchai",
		CreatedAt:     "2024-03-01T10:00:00Z",
		UpdatedAt:     "2024-03-01T10:05:00Z",
		LastMessageAt: "2024-03-01T10:05:00Z",
	}
	repo.messages[roomID] = []model.ChatMessageItem{
		{
			PK:        model.MessagePK(roomID, "msg-1"),
			RoomID:    roomID,
			MessageID: "msg-1",
			SenderID:  "guest-1",
			Body:      "Is a room available?",
			CreatedAt: "2024-03-01T10:00:00Z",
		},
		{
			PK:        model.MessagePK(roomID, "msg-2"),
			RoomID:    roomID,
			MessageID: "msg-2",
			SenderID:  "adm-1",
			IsAdmin:   true,
			Body:      "Yes, one on the third floor.",
			CreatedAt: "2024-03-01T10:05:00Z",
		},
	}
}

func TestGuestHistoryEndpoint(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")

	token, err := session.Sign("room-1", "Somchai", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/room-1/messages?sessionToken="+token, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.RoomHistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Room.RoomID != "room-1" {
		t.Fatalf("unexpected room id %s", resp.Room.RoomID)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[1].Body != "Yes, one on the third floor." {
		t.Fatalf("unexpected message body %s", resp.Messages[1].Body)
	}
	if !resp.Messages[1].IsAdmin {
		t.Fatal("expected second message to be from staff")
	}
}

func TestGuestHistoryInvalidToken(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/room-1/messages?sessionToken=bad.token", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGuestHistoryTokenScopesRoom(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")
	seedGuestRoom(t, repo, "room-2")

	token, err := session.Sign("room-1", "Somchai", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/room-2/messages?sessionToken="+token, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestTenantHistoryWithoutRoomYet(t *testing.T) {
	handler, _ := setupHistoryTestHandler(t)

	token, err := internaljwt.CreateToken(internaljwt.Principal{Id: "t-42", Name: "Anong"}, internaljwt.RoleTenant, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/tenant-t-42/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.RoomHistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Room.RoomID != "tenant-t-42" {
		t.Fatalf("unexpected room id %s", resp.Room.RoomID)
	}
	if len(resp.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(resp.Messages))
	}
}

func TestTenantHistoryCannotReadForeignRoom(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")

	token, err := internaljwt.CreateToken(internaljwt.Principal{Id: "t-42", Name: "Anong"}, internaljwt.RoleTenant, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/room-1/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestHistoryRequiresCredential(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")

	req := httptest.NewRequest(http.MethodGet, "/api/public/rooms/room-1/messages", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestHistoryMethodNotAllowed(t *testing.T) {
	handler, repo := setupHistoryTestHandler(t)
	seedGuestRoom(t, repo, "room-1")

	req := httptest.NewRequest(http.MethodPost, "/api/public/rooms/room-1/messages", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}
