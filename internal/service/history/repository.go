package history

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"dormlink-backend/internal/database"
	"dormlink-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("history repository: not found")

type Repository interface {
	CreateRoom(ctx context.Context, room model.ChatRoomItem) error
	GetRoom(ctx context.Context, roomID string) (model.ChatRoomItem, error)
	TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error
	ListRoomsOrderedByActivity(ctx context.Context, limit int) ([]model.ChatRoomItem, error)
	CreateMessage(ctx context.Context, message model.ChatMessageItem) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessageItem, error)
	MarkRead(ctx context.Context, roomID, readAt string) error
	GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error)
	GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateRoom(ctx context.Context, room model.ChatRoomItem) error {
	// A room resuming after an in-memory expiry must not clobber its
	// persisted unread state.
	if _, err := r.GetRoom(ctx, room.RoomID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return r.db.Client.PutItem(ctx, model.ChatRoomsTable, room)
}

func (r *DynamoRepository) GetRoom(ctx context.Context, roomID string) (model.ChatRoomItem, error) {
	var room model.ChatRoomItem
	err := r.db.Client.GetItem(
		ctx,
		model.ChatRoomsTable,
		map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		&room,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ChatRoomItem{}, ErrNotFound
		}
		return model.ChatRoomItem{}, err
	}
	return room, nil
}

func (r *DynamoRepository) TouchRoom(ctx context.Context, roomID, lastMessageAt string, unread int) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ChatRoomsTable,
		map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		"SET lastMessageAt = :lastMessageAt, updatedAt = :updatedAt, unreadCount = :unread",
		map[string]types.AttributeValue{
			":lastMessageAt": &types.AttributeValueMemberS{Value: lastMessageAt},
			":updatedAt":     &types.AttributeValueMemberS{Value: lastMessageAt},
			":unread":        &types.AttributeValueMemberN{Value: strconv.Itoa(unread)},
		},
		nil,
		nil,
	)
}

func (r *DynamoRepository) ListRoomsOrderedByActivity(ctx context.Context, limit int) ([]model.ChatRoomItem, error) {
	items, err := r.db.Client.ScanItems(ctx, model.ChatRoomsTable, "", nil, nil)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.ChatRoomItem, 0, len(items))
	for _, item := range items {
		var room model.ChatRoomItem
		if err := attributevalue.UnmarshalMap(item, &room); err != nil {
			return nil, err
		}
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

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.ChatMessageItem) error {
	return r.db.Client.PutItem(ctx, model.ChatMessagesTable, message)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessageItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ChatMessagesTable,
		aws.String("byRoom"),
		"roomId = :roomId",
		map[string]types.AttributeValue{
			":roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		nil,
		aws.Bool(true),
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessageItem, 0, len(items))
	for _, item := range items {
		var msg model.ChatMessageItem
		if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (r *DynamoRepository) MarkRead(ctx context.Context, roomID, readAt string) error {
	err := r.db.Client.UpdateItem(
		ctx,
		model.ChatRoomsTable,
		map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomID},
		},
		"SET unreadCount = :zero, readAt = :readAt, updatedAt = :readAt",
		map[string]types.AttributeValue{
			":zero":   &types.AttributeValueMemberN{Value: "0"},
			":readAt": &types.AttributeValueMemberS{Value: readAt},
		},
		nil,
		nil,
	)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *DynamoRepository) GetTenant(ctx context.Context, tenantID string) (model.TenantItem, error) {
	var tenant model.TenantItem
	err := r.db.Client.GetItem(
		ctx,
		model.TenantsTable,
		map[string]types.AttributeValue{
			"tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
		&tenant,
	)
	if err != nil {
		if isNotFound(err) {
			return model.TenantItem{}, ErrNotFound
		}
		return model.TenantItem{}, err
	}
	return tenant, nil
}

func (r *DynamoRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	var admin model.AdminItem
	err := r.db.Client.GetItem(
		ctx,
		model.AdminsTable,
		map[string]types.AttributeValue{
			"adminId": &types.AttributeValueMemberS{Value: adminID},
		},
		&admin,
	)
	if err != nil {
		if isNotFound(err) {
			return model.AdminItem{}, ErrNotFound
		}
		return model.AdminItem{}, err
	}
	return admin, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "item not found")
}
