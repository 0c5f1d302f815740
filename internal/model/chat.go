package model

type RoomKind string

const (
	RoomKindGuest          RoomKind = "guest"
	RoomKindTenant         RoomKind = "tenant"
	RoomKindAdminInitiated RoomKind = "admin-initiated"
)

type ChatRoomItem struct {
	RoomID        string   `dynamodbav:"roomId"`
	Kind          RoomKind `dynamodbav:"kind"`
	DisplayName   string   `dynamodbav:"displayName,omitempty"`
	TenantID      string   `dynamodbav:"tenantId,omitempty"`
	UnreadCount   int      `dynamodbav:"unreadCount"`
	CreatedAt     string   `dynamodbav:"createdAt"`
	UpdatedAt     string   `dynamodbav:"updatedAt"`
	LastMessageAt string   `dynamodbav:"lastMessageAt"`
	ReadAt        string   `dynamodbav:"readAt,omitempty"`
}

type ChatMessageItem struct {
	PK         string `dynamodbav:"pk"`
	RoomID     string `dynamodbav:"roomId"`
	MessageID  string `dynamodbav:"messageId"`
	SenderID   string `dynamodbav:"senderId"`
	SenderName string `dynamodbav:"senderName,omitempty"`
	IsAdmin    bool   `dynamodbav:"isAdmin"`
	Body       string `dynamodbav:"body"`
	CreatedAt  string `dynamodbav:"createdAt"`
	IsRead     bool   `dynamodbav:"isRead"`
	ReadAt     string `dynamodbav:"readAt,omitempty"`
}
