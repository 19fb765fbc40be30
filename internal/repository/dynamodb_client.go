package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"line-chat-agent/internal/domain"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ReadWriter defines the conversation persistence operations.
type ReadWriter interface {
	SaveUser(ctx context.Context, rec domain.UserRecord) error
	SaveTurn(ctx context.Context, turn domain.Turn) error
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
}

// Client wraps the chat log and user directory tables.
type Client struct {
	api           dynamodbAPI
	chatLogTable  string
	userInfoTable string
}

// New creates a repository Client over the two tables.
func New(api dynamodbAPI, chatLogTable, userInfoTable string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(chatLogTable) == "" {
		return nil, errors.New("repository: chat log table name must not be empty")
	}
	if strings.TrimSpace(userInfoTable) == "" {
		return nil, errors.New("repository: user info table name must not be empty")
	}
	return &Client{api: api, chatLogTable: chatLogTable, userInfoTable: userInfoTable}, nil
}

// SaveUser upserts the user directory entry. Last write wins.
func (c *Client) SaveUser(ctx context.Context, rec domain.UserRecord) error {
	if rec.UserID == "" {
		return errors.New("repository: SaveUser: user id is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.userInfoTable),
		Item:      userItem(rec),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveUser: %w", err)
	}
	return nil
}

// SaveTurn appends one completed turn to the chat log.
func (c *Client) SaveTurn(ctx context.Context, turn domain.Turn) error {
	if turn.ConversationID == "" {
		return errors.New("repository: SaveTurn: conversation id is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.chatLogTable),
		Item:      turnItem(turn),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	return nil
}

// GetHistory returns up to limit turns of a conversation in chronological
// order. The query reads newest first so the limit keeps the most recent
// context, then the page is reversed.
func (c *Client) GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.chatLogTable),
		KeyConditionExpression: aws.String("conversation_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func userItem(rec domain.UserRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":    &types.AttributeValueMemberS{Value: rec.UserID},
		"user_name":  &types.AttributeValueMemberS{Value: rec.UserName},
		"tenant_id":  &types.AttributeValueMemberN{Value: strconv.Itoa(rec.TenantID)},
		"created_at": &types.AttributeValueMemberS{Value: rec.CreatedAt},
		"updated_at": &types.AttributeValueMemberS{Value: rec.UpdatedAt},
	}
}

func turnItem(turn domain.Turn) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"conversation_id": &types.AttributeValueMemberS{Value: turn.ConversationID},
		"date_ms":         &types.AttributeValueMemberN{Value: strconv.FormatInt(turn.DateMS, 10)},
		"user":            &types.AttributeValueMemberS{Value: turn.UserText},
		"assistant":       &types.AttributeValueMemberS{Value: turn.AssistantText},
		"user_name":       &types.AttributeValueMemberS{Value: turn.UserName},
		"actual_user_id":  &types.AttributeValueMemberS{Value: turn.ActualUserID},
		"tenant_id":       &types.AttributeValueMemberN{Value: strconv.Itoa(turn.TenantID)},
		"created_at":      &types.AttributeValueMemberS{Value: turn.CreatedAt},
	}
	// Group and room ids only appear on turns that have them; the history
	// assembler keys the speaker-name prefix off group_id presence.
	if turn.GroupID != "" {
		item["group_id"] = &types.AttributeValueMemberS{Value: turn.GroupID}
	}
	if turn.RoomID != "" {
		item["room_id"] = &types.AttributeValueMemberS{Value: turn.RoomID}
	}
	return item
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	convID, err := strAttr(item, "conversation_id")
	if err != nil {
		return domain.Turn{}, err
	}
	dateMS, err := int64Attr(item, "date_ms")
	if err != nil {
		return domain.Turn{}, err
	}
	userText, err := strAttr(item, "user")
	if err != nil {
		return domain.Turn{}, err
	}
	assistantText, err := strAttr(item, "assistant")
	if err != nil {
		return domain.Turn{}, err
	}
	userName, _ := strAttr(item, "user_name")          // allow empty
	actualUserID, _ := strAttr(item, "actual_user_id") // allow empty
	groupID, _ := strAttr(item, "group_id")            // optional
	roomID, _ := strAttr(item, "room_id")              // optional

	return domain.Turn{
		ConversationID: convID,
		DateMS:         dateMS,
		UserName:       userName,
		ActualUserID:   actualUserID,
		GroupID:        groupID,
		RoomID:         roomID,
		UserText:       userText,
		AssistantText:  assistantText,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
