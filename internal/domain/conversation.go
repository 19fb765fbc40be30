package domain

import "time"

// Turn is one persisted conversation turn: the user message and the
// assistant reply, keyed by conversation id and a millisecond timestamp.
// Immutable once written.
type Turn struct {
	ConversationID string
	DateMS         int64
	UserName       string
	ActualUserID   string
	GroupID        string
	RoomID         string
	UserText       string
	AssistantText  string
	TenantID       int
	CreatedAt      string
}

// UserRecord is the user directory entry, upserted on every message.
type UserRecord struct {
	UserID    string
	UserName  string
	TenantID  int
	CreatedAt string
	UpdatedAt string
}

// NewTurn builds a Turn for the event, stamped with the current time.
func NewTurn(ev MessageEvent, userName, userText, assistantText string, tenantID int) Turn {
	now := time.Now().UTC()
	return Turn{
		ConversationID: ev.ConversationID(),
		DateMS:         now.UnixMilli(),
		UserName:       userName,
		ActualUserID:   ev.UserID,
		GroupID:        ev.GroupID,
		RoomID:         ev.RoomID,
		UserText:       userText,
		AssistantText:  assistantText,
		TenantID:       tenantID,
		CreatedAt:      now.Format(time.RFC3339),
	}
}

// NewUserRecord builds a UserRecord stamped with the current time.
func NewUserRecord(userID, userName string, tenantID int) UserRecord {
	now := time.Now().UTC().Format(time.RFC3339)
	return UserRecord{
		UserID:    userID,
		UserName:  userName,
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
