package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	historyservice "dormlink-backend/internal/service/history"
)

type HistoryEndpoints interface {
	RoomMessages(http.ResponseWriter, *http.Request) error
}

type HistoryPaths struct {
	RoomMessagesPrefix string
}

type historyEndpoints struct {
	service *historyservice.Service
	paths   HistoryPaths
}

func NewHistoryEndpoints(service *historyservice.Service, paths HistoryPaths) HistoryEndpoints {
	return &historyEndpoints{
		service: service,
		paths:   paths,
	}
}

func (h *historyEndpoints) RoomMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleRoomMessages,
	})
}

// handleRoomMessages serves transcripts to guests resuming via session
// token and to tenants presenting their own JWT. The room id in the path
// is advisory for guests: access is scoped by the credential, never by
// the path alone.
func (h *historyEndpoints) handleRoomMessages(w http.ResponseWriter, r *http.Request) error {
	roomID, err := h.extractRoomPath(r.URL.Path)
	if err != nil {
		return err
	}

	token := strings.TrimSpace(r.URL.Query().Get("sessionToken"))
	if token == "" {
		token = strings.TrimSpace(r.Header.Get("X-Session-Token"))
	}

	var result historyservice.RoomHistoryResult
	var svcErr error
	if token != "" {
		result, svcErr = h.service.GuestHistory(r.Context(), token, 100)
	} else {
		result, svcErr = h.service.TenantHistory(r.Context(), r.Header.Get("Authorization"), 100)
	}
	if svcErr != nil {
		return historyServiceError(svcErr)
	}

	if result.Room.RoomID != roomID {
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    "Credential does not match room",
			ErrorLog:   fmt.Errorf("history room mismatch: %s vs %s", result.Room.RoomID, roomID),
		}
	}

	return WriteJSON(w, http.StatusOK, toRoomHistoryResponse(result))
}

func (h *historyEndpoints) extractRoomPath(path string) (string, error) {
	prefix := h.paths.RoomMessagesPrefix
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("history route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("history path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[1] != "messages" || parts[0] == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Room not found", ErrorLog: fmt.Errorf("invalid history path: %s", path)}
	}
	return parts[0], nil
}
