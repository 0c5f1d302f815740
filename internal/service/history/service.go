package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"dormlink-backend/internal/chat"
	"dormlink-backend/internal/database"
	internaljwt "dormlink-backend/internal/jwt"
	"dormlink-backend/internal/model"
	"dormlink-backend/internal/session"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AdminIdentity is a verified staff principal extracted from an admin JWT.
type AdminIdentity struct {
	AdminID string
	Name    string
}

type RoomHistoryResult struct {
	Room     model.ChatRoomItem
	Messages []model.ChatMessageItem
}

type ListRoomsResult struct {
	Rooms []model.ChatRoomItem
}

type MarkReadResult struct {
	Room   model.ChatRoomItem
	ReadAt string
}

type OpenTenantRoomResult struct {
	Room    model.ChatRoomItem
	Created bool
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// GuestHistory returns the room and transcript a guest session token grants
// access to. The token is the only credential a guest holds, so every
// failure collapses to unauthorized rather than leaking room existence.
func (s *Service) GuestHistory(ctx context.Context, sessionToken string, limit int) (RoomHistoryResult, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return RoomHistoryResult{}, newError(ErrorCodeUnauthorized, "session token required", nil)
	}

	claims, err := session.Verify(sessionToken, s.now())
	if err != nil {
		return RoomHistoryResult{}, newError(ErrorCodeUnauthorized, "invalid session token", err)
	}

	return s.roomHistory(ctx, claims.RoomID, limit)
}

// TenantHistory returns the tenant's dedicated room transcript. The room
// may not exist yet when the tenant has never chatted.
func (s *Service) TenantHistory(ctx context.Context, authHeader string, limit int) (RoomHistoryResult, error) {
	principal, err := principalFromHeader(authHeader, internaljwt.RoleTenant)
	if err != nil {
		return RoomHistoryResult{}, err
	}

	roomID := chat.TenantRoomID(principal.Id)
	result, err := s.roomHistory(ctx, roomID, limit)
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) && svcErr.Code == ErrorCodeNotFound {
			return RoomHistoryResult{
				Room: model.ChatRoomItem{
					RoomID:      roomID,
					Kind:        model.RoomKindTenant,
					DisplayName: principal.Name,
					TenantID:    principal.Id,
				},
			}, nil
		}
		return RoomHistoryResult{}, err
	}
	return result, nil
}

func (s *Service) ListRooms(ctx context.Context, identity AdminIdentity, limit int) (ListRoomsResult, error) {
	if err := s.verifyAdmin(ctx, identity); err != nil {
		return ListRoomsResult{}, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rooms, err := s.repo.ListRoomsOrderedByActivity(ctx, limit)
	if err != nil {
		return ListRoomsResult{}, newError(ErrorCodeInternal, "failed to list rooms", err)
	}

	return ListRoomsResult{Rooms: rooms}, nil
}

func (s *Service) ListRoomMessages(ctx context.Context, identity AdminIdentity, roomID string, limit int) (RoomHistoryResult, error) {
	if err := s.verifyAdmin(ctx, identity); err != nil {
		return RoomHistoryResult{}, err
	}
	return s.roomHistory(ctx, roomID, limit)
}

// MarkRead zeroes a room's unread counter. The caller is responsible for
// fanning the change out to live listeners.
func (s *Service) MarkRead(ctx context.Context, identity AdminIdentity, roomID string) (MarkReadResult, error) {
	if err := s.verifyAdmin(ctx, identity); err != nil {
		return MarkReadResult{}, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return MarkReadResult{}, newError(ErrorCodeValidation, "roomId is required", nil)
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MarkReadResult{}, newError(ErrorCodeNotFound, "room not found", err)
		}
		return MarkReadResult{}, newError(ErrorCodeInternal, "failed to fetch room", err)
	}

	readAt := s.now().UTC().Format(time.RFC3339)
	if err := s.repo.MarkRead(ctx, roomID, readAt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return MarkReadResult{}, newError(ErrorCodeNotFound, "room not found", err)
		}
		return MarkReadResult{}, newError(ErrorCodeInternal, "failed to mark room read", err)
	}

	room.UnreadCount = 0
	room.ReadAt = readAt
	room.UpdatedAt = readAt

	return MarkReadResult{Room: room, ReadAt: readAt}, nil
}

// OpenTenantRoom prepares a tenant's dedicated room so staff can message
// first. Reopening an existing room is not an error.
func (s *Service) OpenTenantRoom(ctx context.Context, identity AdminIdentity, tenantID string) (OpenTenantRoomResult, error) {
	if err := s.verifyAdmin(ctx, identity); err != nil {
		return OpenTenantRoomResult{}, err
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return OpenTenantRoomResult{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return OpenTenantRoomResult{}, newError(ErrorCodeNotFound, "tenant not found", err)
		}
		return OpenTenantRoomResult{}, newError(ErrorCodeInternal, "failed to fetch tenant", err)
	}

	roomID := chat.TenantRoomID(tenantID)
	if existing, err := s.repo.GetRoom(ctx, roomID); err == nil {
		return OpenTenantRoomResult{Room: existing}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return OpenTenantRoomResult{}, newError(ErrorCodeInternal, "failed to fetch room", err)
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	room := model.ChatRoomItem{
		RoomID:        roomID,
		Kind:          model.RoomKindAdminInitiated,
		DisplayName:   tenant.Name,
		TenantID:      tenantID,
		CreatedAt:     nowStr,
		UpdatedAt:     nowStr,
		LastMessageAt: nowStr,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return OpenTenantRoomResult{}, newError(ErrorCodeInternal, "failed to create room", err)
	}

	return OpenTenantRoomResult{Room: room, Created: true}, nil
}

func (s *Service) AdminIdentityFromAuthorizationHeader(header string) (AdminIdentity, error) {
	principal, err := principalFromHeader(header, internaljwt.RoleAdmin)
	if err != nil {
		return AdminIdentity{}, err
	}
	return AdminIdentity{AdminID: principal.Id, Name: principal.Name}, nil
}

// verifyAdmin confirms the JWT principal still exists in the admin table.
func (s *Service) verifyAdmin(ctx context.Context, identity AdminIdentity) error {
	if identity.AdminID == "" {
		return newError(ErrorCodeUnauthorized, "invalid admin identity", nil)
	}
	if _, err := s.repo.GetAdmin(ctx, identity.AdminID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeUnauthorized, "admin not found", err)
		}
		return newError(ErrorCodeInternal, "failed to verify admin", err)
	}
	return nil
}

func (s *Service) roomHistory(ctx context.Context, roomID string, limit int) (RoomHistoryResult, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return RoomHistoryResult{}, newError(ErrorCodeValidation, "roomId is required", nil)
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RoomHistoryResult{}, newError(ErrorCodeNotFound, "room not found", err)
		}
		return RoomHistoryResult{}, newError(ErrorCodeInternal, "failed to fetch room", err)
	}

	messages, err := s.repo.ListMessages(ctx, roomID, limit)
	if err != nil {
		return RoomHistoryResult{}, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	return RoomHistoryResult{Room: room, Messages: messages}, nil
}

func principalFromHeader(header string, role internaljwt.Role) (internaljwt.Principal, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return internaljwt.Principal{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return internaljwt.Principal{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims, err := internaljwt.ParseToken(token, role)
	if err != nil {
		return internaljwt.Principal{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return internaljwt.Principal{}, newError(ErrorCodeUnauthorized, "invalid token claims", nil)
	}

	return internaljwt.Principal{Id: id, Name: name}, nil
}
