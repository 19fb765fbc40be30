package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"line-chat-agent/internal/domain"
)

type fakeDynamo struct {
	putErr      error
	queryOut    *dynamodb.QueryOutput
	queryErr    error
	putInputs   []*dynamodb.PutItemInput
	lastQueryIn *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func makeTurnItem(convID string, dateMS int64, user, assistant, userName, groupID string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"conversation_id": &types.AttributeValueMemberS{Value: convID},
		"date_ms":         &types.AttributeValueMemberN{Value: strconv.FormatInt(dateMS, 10)},
		"user":            &types.AttributeValueMemberS{Value: user},
		"assistant":       &types.AttributeValueMemberS{Value: assistant},
		"user_name":       &types.AttributeValueMemberS{Value: userName},
	}
	if groupID != "" {
		item["group_id"] = &types.AttributeValueMemberS{Value: groupID}
	}
	return item
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "chat_log", "user_info")
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "chat_log", "user_info")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ", "user_info")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, "chat_log", "")
	require.Error(t, err)
}

func TestSaveUser_WritesUserInfoTable(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	rec := domain.NewUserRecord("U1", "Alice", 0)
	require.NoError(t, c.SaveUser(context.Background(), rec))
	require.Len(t, db.putInputs, 1)

	in := db.putInputs[0]
	require.Equal(t, "user_info", *in.TableName)
	require.Equal(t, "U1", in.Item["user_id"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Alice", in.Item["user_name"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "0", in.Item["tenant_id"].(*types.AttributeValueMemberN).Value)
	require.NotEmpty(t, in.Item["created_at"].(*types.AttributeValueMemberS).Value)
	require.NotEmpty(t, in.Item["updated_at"].(*types.AttributeValueMemberS).Value)
}

func TestSaveUser_RequiresUserID(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.SaveUser(context.Background(), domain.UserRecord{}))
}

func TestSaveTurn_WritesChatLogTable(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	ev := domain.MessageEvent{SourceType: domain.SourceGroup, UserID: "U1", GroupID: "G1"}
	turn := domain.NewTurn(ev, "Alice", "hello", "hi there", 0)
	require.NoError(t, c.SaveTurn(context.Background(), turn))
	require.Len(t, db.putInputs, 1)

	in := db.putInputs[0]
	require.Equal(t, "chat_log", *in.TableName)
	require.Equal(t, "G1", in.Item["conversation_id"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "hello", in.Item["user"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "hi there", in.Item["assistant"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "U1", in.Item["actual_user_id"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "G1", in.Item["group_id"].(*types.AttributeValueMemberS).Value)
	_, hasRoom := in.Item["room_id"]
	require.False(t, hasRoom, "room_id must be omitted when empty")
}

func TestSaveTurn_OmitsGroupIDForDirectChat(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	ev := domain.MessageEvent{SourceType: domain.SourceUser, UserID: "U1"}
	require.NoError(t, c.SaveTurn(context.Background(), domain.NewTurn(ev, "Alice", "hello", "hi", 0)))

	item := db.putInputs[0].Item
	require.Equal(t, "U1", item["conversation_id"].(*types.AttributeValueMemberS).Value)
	_, hasGroup := item["group_id"]
	require.False(t, hasGroup)
}

func TestGetHistory_QueriesNewestFirstAndReverses(t *testing.T) {
	// Query returns newest first, as DynamoDB would with ScanIndexForward=false.
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		makeTurnItem("G1", 300, "third", "a3", "Alice", "G1"),
		makeTurnItem("G1", 200, "second", "a2", "Bob", "G1"),
		makeTurnItem("G1", 100, "first", "a1", "Alice", "G1"),
	}}}
	c := mustNewClient(t, db)

	turns, err := c.GetHistory(context.Background(), "G1", 20)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, []int64{100, 200, 300}, []int64{turns[0].DateMS, turns[1].DateMS, turns[2].DateMS})
	require.Equal(t, "first", turns[0].UserText)
	require.Equal(t, "a3", turns[2].AssistantText)

	in := db.lastQueryIn
	require.Equal(t, "chat_log", *in.TableName)
	require.Equal(t, "conversation_id = :cid", *in.KeyConditionExpression)
	require.Equal(t, "G1", in.ExpressionAttributeValues[":cid"].(*types.AttributeValueMemberS).Value)
	require.False(t, *in.ScanIndexForward)
	require.Equal(t, int32(20), *in.Limit)
}

func TestGetHistory_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throughput exceeded")}
	c := mustNewClient(t, db)
	_, err := c.GetHistory(context.Background(), "G1", 20)
	require.Error(t, err)
}

func TestGetHistory_MalformedItem(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"conversation_id": &types.AttributeValueMemberS{Value: "G1"}},
	}}}
	c := mustNewClient(t, db)
	_, err := c.GetHistory(context.Background(), "G1", 20)
	require.Error(t, err)
}
