package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"dormlink-backend/internal/chat"
	"dormlink-backend/internal/dto"
	historyservice "dormlink-backend/internal/service/history"
)

type AdminEndpoints interface {
	Rooms(http.ResponseWriter, *http.Request) error
	RoomActions(http.ResponseWriter, *http.Request) error
}

type AdminPaths struct {
	RoomsPath   string
	RoomsPrefix string
}

type adminEndpoints struct {
	service   *historyservice.Service
	publisher *chat.Publisher
	paths     AdminPaths
}

func NewAdminEndpoints(service *historyservice.Service, publisher *chat.Publisher, paths AdminPaths) AdminEndpoints {
	return &adminEndpoints{
		service:   service,
		publisher: publisher,
		paths:     paths,
	}
}

func (h *adminEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListRooms,
		http.MethodPost: h.handleOpenTenantRoom,
	})
}

func (h *adminEndpoints) RoomActions(w http.ResponseWriter, r *http.Request) error {
	roomID, action, err := h.extractRoomAction(r.URL.Path)
	if err != nil {
		return err
	}

	switch action {
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleRoomMessages(w, r, roomID)
			},
		})
	case "read":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleMarkRead(w, r, roomID)
			},
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Room not found",
			ErrorLog:   fmt.Errorf("unknown room action: %s", action),
		}
	}
}

func (h *adminEndpoints) handleListRooms(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.AdminIdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return historyServiceError(err)
	}

	result, err := h.service.ListRooms(r.Context(), identity, 50)
	if err != nil {
		return historyServiceError(err)
	}

	resp := dto.ListRoomsResponse{Rooms: make([]dto.RoomMetadata, len(result.Rooms))}
	for i, room := range result.Rooms {
		resp.Rooms[i] = toRoomMetadata(room)
	}

	return WriteJSON(w, http.StatusOK, resp)
}

func (h *adminEndpoints) handleRoomMessages(w http.ResponseWriter, r *http.Request, roomID string) error {
	identity, err := h.service.AdminIdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return historyServiceError(err)
	}

	result, err := h.service.ListRoomMessages(r.Context(), identity, roomID, 100)
	if err != nil {
		return historyServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, toRoomHistoryResponse(result))
}

func (h *adminEndpoints) handleMarkRead(w http.ResponseWriter, r *http.Request, roomID string) error {
	identity, err := h.service.AdminIdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return historyServiceError(err)
	}

	result, err := h.service.MarkRead(r.Context(), identity, roomID)
	if err != nil {
		return historyServiceError(err)
	}

	h.publishFeed(r.Context(), &chat.ServerEvent{
		Type:     chat.EventConversationActivity,
		RoomID:   result.Room.RoomID,
		UserName: result.Room.DisplayName,
	})

	return WriteJSON(w, http.StatusOK, dto.MarkReadResponse{
		Room:   toRoomMetadata(result.Room),
		ReadAt: result.ReadAt,
	})
}

func (h *adminEndpoints) handleOpenTenantRoom(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.service.AdminIdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return historyServiceError(err)
	}

	var req dto.OpenTenantRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode open room request: %w", err),
		}
	}

	result, err := h.service.OpenTenantRoom(r.Context(), identity, req.TenantID)
	if err != nil {
		return historyServiceError(err)
	}

	if result.Created {
		h.publishFeed(r.Context(), &chat.ServerEvent{
			Type:     chat.EventNewConversation,
			RoomID:   result.Room.RoomID,
			UserName: result.Room.DisplayName,
		})
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return WriteJSON(w, status, dto.OpenTenantRoomResponse{
		Room:    toRoomMetadata(result.Room),
		Created: result.Created,
	})
}

func (h *adminEndpoints) publishFeed(ctx context.Context, ev *chat.ServerEvent) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishAdminFeed(ctx, ev); err != nil {
		log.Printf("failed to publish admin feed event for room %s: %v", ev.RoomID, err)
	}
}

func (h *adminEndpoints) extractRoomAction(path string) (string, string, error) {
	prefix := h.paths.RoomsPrefix
	if prefix == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("admin room routes not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("admin room path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("invalid admin room path: %s", path)}
	}
	return parts[0], parts[1], nil
}
