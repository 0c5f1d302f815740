package chat

import "time"

const previewLimit = 120

// AdminChannel is the distinguished broadcast group every connected
// operator joins. It carries conversation-level signals, not message
// deliveries: new_conversation exactly once per room, and a
// conversation_activity preview per accepted message so idle admin
// clients can keep list previews and unread badges current.
type AdminChannel struct {
	registry *Registry
}

func NewAdminChannel(registry *Registry) *AdminChannel {
	return &AdminChannel{registry: registry}
}

// AnnounceNewConversation fires on the room's nonexistent-to-existing
// transition. The registry guards the once-only semantics, so N connected
// admins each see exactly one event.
func (a *AdminChannel) AnnounceNewConversation(room RoomSummary, at time.Time) {
	if !a.registry.MarkAnnounced(room.RoomID) {
		return
	}
	a.registry.BroadcastAdmins(&ServerEvent{
		Type:      EventNewConversation,
		RoomID:    room.RoomID,
		UserName:  room.DisplayName,
		Timestamp: at.UnixMilli(),
	})
}

func (a *AdminChannel) AnnounceActivity(room RoomSummary, msg Message) {
	a.registry.BroadcastAdmins(&ServerEvent{
		Type:      EventConversationActivity,
		RoomID:    room.RoomID,
		UserName:  room.DisplayName,
		Preview:   preview(msg.Body),
		Unread:    room.UnreadCount,
		Timestamp: msg.Timestamp.UnixMilli(),
	})
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit])
}
