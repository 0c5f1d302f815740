package model

import "fmt"

const (
	ChatRoomsTable    = "ChatRooms"
	ChatMessagesTable = "ChatMessages"
	TenantsTable      = "Tenants"
	AdminsTable       = "Admins"
)

type TenantItem struct {
	TenantID  string `dynamodbav:"tenantId"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email,omitempty"`
	RoomNo    string `dynamodbav:"roomNo,omitempty"`
	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"createdAt"`
}

type AdminItem struct {
	AdminID   string `dynamodbav:"adminId"`
	Email     string `dynamodbav:"email"`
	Name      string `dynamodbav:"name"`
	Role      string `dynamodbav:"role"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func MessagePK(roomID, messageID string) string {
	return fmt.Sprintf("%s#%s", roomID, messageID)
}
