package line

import (
	"encoding/json"
	"fmt"

	"line-chat-agent/internal/domain"
)

// webhookPayload is the top-level webhook body.
type webhookPayload struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string         `json:"type"`
	ReplyToken string         `json:"replyToken"`
	Timestamp  int64          `json:"timestamp"`
	Source     webhookSource  `json:"source"`
	Message    webhookMessage `json:"message"`
}

type webhookSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
	RoomID  string `json:"roomId"`
}

type webhookMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ParseWebhook decodes a webhook body and returns its text-message events.
// Non-message events (follow, join, stickers, ...) are ignored.
func ParseWebhook(body []byte) ([]domain.MessageEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("line: decode webhook body: %w", err)
	}

	events := make([]domain.MessageEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		if ev.Type != "message" || ev.Message.Type != "text" {
			continue
		}
		events = append(events, domain.MessageEvent{
			ReplyToken: ev.ReplyToken,
			SourceType: domain.SourceType(ev.Source.Type),
			UserID:     ev.Source.UserID,
			GroupID:    ev.Source.GroupID,
			RoomID:     ev.Source.RoomID,
			Text:       ev.Message.Text,
		})
	}
	return events, nil
}
