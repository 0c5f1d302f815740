package endpoints

import (
	"fmt"
	"net/http"

	"dormlink-backend/internal/dto"
	"dormlink-backend/internal/model"
	historyservice "dormlink-backend/internal/service/history"
)

func toRoomMetadata(item model.ChatRoomItem) dto.RoomMetadata {
	return dto.RoomMetadata{
		RoomID:        item.RoomID,
		Kind:          string(item.Kind),
		DisplayName:   item.DisplayName,
		TenantID:      item.TenantID,
		UnreadCount:   item.UnreadCount,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
		LastMessageAt: item.LastMessageAt,
		ReadAt:        item.ReadAt,
	}
}

func toMessageResponse(item model.ChatMessageItem) dto.MessageResponse {
	return dto.MessageResponse{
		MessageID:  item.MessageID,
		RoomID:     item.RoomID,
		SenderID:   item.SenderID,
		SenderName: item.SenderName,
		IsAdmin:    item.IsAdmin,
		Body:       item.Body,
		CreatedAt:  item.CreatedAt,
	}
}

func toRoomHistoryResponse(result historyservice.RoomHistoryResult) dto.RoomHistoryResponse {
	resp := dto.RoomHistoryResponse{
		Room:     toRoomMetadata(result.Room),
		Messages: make([]dto.MessageResponse, len(result.Messages)),
	}
	for i, msg := range result.Messages {
		resp.Messages[i] = toMessageResponse(msg)
	}
	return resp
}

func historyServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*historyservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("history service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case historyservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case historyservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case historyservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case historyservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
