package domain

// SourceType identifies where a webhook message originated.
type SourceType string

const (
	SourceUser  SourceType = "user"
	SourceGroup SourceType = "group"
	SourceRoom  SourceType = "room"
)

// MessageEvent is a single inbound text message from the platform webhook.
// It is ephemeral; the reply token is consumable exactly once.
type MessageEvent struct {
	ReplyToken string
	SourceType SourceType
	UserID     string
	GroupID    string
	RoomID     string
	Text       string
}

// ConversationID resolves the partition key unifying all turns of one
// group, room, or individual. Group id takes precedence over room id,
// which takes precedence over the sender id.
func (e MessageEvent) ConversationID() string {
	if e.GroupID != "" {
		return e.GroupID
	}
	if e.RoomID != "" {
		return e.RoomID
	}
	return e.UserID
}
