package chat

import (
	"strings"
	"time"

	"dormlink-backend/internal/model"
)

const (
	EventJoinPrivateChat = "join_private_chat"
	EventJoinAdminRoom   = "join_admin_room"
	EventOpenRoom        = "open_room"
	EventSendMessage     = "send_message"

	EventJoined               = "joined"
	EventMessage              = "message"
	EventNewConversation      = "new_conversation"
	EventConversationActivity = "conversation_activity"
	EventError                = "error"
)

// ClientEvent is the decoded form of every inbound frame. The payload is a
// tagged union keyed on Type; Validate enforces the per-variant required
// fields before anything reaches the router.
type ClientEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
	Message string `json:"message,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

func (ev *ClientEvent) Validate() *Error {
	switch ev.Type {
	case EventJoinPrivateChat:
		if strings.TrimSpace(ev.Name) == "" && strings.TrimSpace(ev.RoomID) == "" {
			return newError(ErrorCodeValidation, "name or roomId is required", nil)
		}
		return nil
	case EventJoinAdminRoom:
		if !ev.IsAdmin {
			return newError(ErrorCodeValidation, "isAdmin flag is required", nil)
		}
		return nil
	case EventOpenRoom:
		if strings.TrimSpace(ev.RoomID) == "" {
			return newError(ErrorCodeValidation, "roomId is required", nil)
		}
		return nil
	case EventSendMessage:
		return nil
	default:
		return newError(ErrorCodeValidation, "unknown event type", nil)
	}
}

type ServerEvent struct {
	Type         string `json:"type"`
	ID           string `json:"id,omitempty"`
	RoomID       string `json:"roomId,omitempty"`
	SenderID     string `json:"senderId,omitempty"`
	SenderName   string `json:"senderName,omitempty"`
	Message      string `json:"message,omitempty"`
	IsAdmin      bool   `json:"isAdmin,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Preview      string `json:"preview,omitempty"`
	Unread       int    `json:"unread,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	Code         string `json:"code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Message is one accepted unit of conversation. The timestamp is assigned
// at acceptance time, never taken from the client.
type Message struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	IsAdmin    bool
	Body       string
	Timestamp  time.Time
}

func (m Message) Event() *ServerEvent {
	return &ServerEvent{
		Type:       EventMessage,
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Message:    m.Body,
		IsAdmin:    m.IsAdmin,
		Timestamp:  m.Timestamp.UnixMilli(),
	}
}

func (m Message) Item() model.ChatMessageItem {
	return model.ChatMessageItem{
		PK:         model.MessagePK(m.RoomID, m.ID),
		RoomID:     m.RoomID,
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		IsAdmin:    m.IsAdmin,
		Body:       m.Body,
		CreatedAt:  m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

type IdentityKind string

const (
	IdentityGuest  IdentityKind = "guest"
	IdentityTenant IdentityKind = "tenant"
	IdentityAdmin  IdentityKind = "admin"
)

type Identity struct {
	Kind IdentityKind
	ID   string
	Name string
	// Downgraded marks a connection that presented a tenant/admin token
	// which failed verification and now proceeds as an anonymous guest.
	Downgraded bool
}

// RoomSummary is the registry snapshot row used by the live-room listing.
type RoomSummary struct {
	RoomID         string         `json:"roomId"`
	Kind           model.RoomKind `json:"kind"`
	DisplayName    string         `json:"displayName"`
	Participants   int            `json:"participants"`
	UnreadCount    int            `json:"unreadCount"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
}
