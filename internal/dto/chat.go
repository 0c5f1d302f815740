package dto

type RoomMetadata struct {
	RoomID        string `json:"roomId"`
	Kind          string `json:"kind"`
	DisplayName   string `json:"displayName,omitempty"`
	TenantID      string `json:"tenantId,omitempty"`
	UnreadCount   int    `json:"unreadCount"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
	LastMessageAt string `json:"lastMessageAt"`
	ReadAt        string `json:"readAt,omitempty"`
}

type MessageResponse struct {
	MessageID  string `json:"messageId"`
	RoomID     string `json:"roomId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	IsAdmin    bool   `json:"isAdmin"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

type RoomHistoryResponse struct {
	Room     RoomMetadata      `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

type ListRoomsResponse struct {
	Rooms []RoomMetadata `json:"rooms"`
}

type MarkReadResponse struct {
	Room   RoomMetadata `json:"room"`
	ReadAt string       `json:"readAt"`
}

type OpenTenantRoomRequest struct {
	TenantID string `json:"tenantId"`
}

type OpenTenantRoomResponse struct {
	Room    RoomMetadata `json:"room"`
	Created bool         `json:"created"`
}
