package usecase

import (
	"context"
	"strings"

	"line-chat-agent/internal/domain"
)

// unknownUserName stands in when every profile lookup path fails; a missing
// display name must not fail the request.
const unknownUserName = "Unknown"

// preprocessResult is the tri-state outcome of message preprocessing:
// proceed (Skip=false), skip (Skip=true), or fail (the error return).
// A group message without a mention is a skip, not an error.
type preprocessResult struct {
	Skip        bool
	Text        string
	DisplayName string
}

// preprocess extracts the cleaned text and sender display name from an
// inbound event. Group messages must mention the bot by "@<display name>";
// the mention token is stripped before generation.
func (s *DispatchService) preprocess(ctx context.Context, ev domain.MessageEvent) (preprocessResult, error) {
	text := ev.Text

	if ev.SourceType == domain.SourceGroup {
		botName, err := s.platform.BotDisplayName(ctx)
		if err != nil {
			return preprocessResult{}, newError(ErrorInternal, "bot_info_error", err)
		}
		mention := "@" + botName
		if !strings.Contains(text, mention) {
			return preprocessResult{Skip: true}, nil
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
	}

	return preprocessResult{
		Text:        text,
		DisplayName: s.senderDisplayName(ctx, ev),
	}, nil
}

// senderDisplayName looks up the sender's profile through the lookup path
// matching the source kind, falling back to "Unknown" on any failure.
func (s *DispatchService) senderDisplayName(ctx context.Context, ev domain.MessageEvent) string {
	var (
		name string
		err  error
	)
	switch ev.SourceType {
	case domain.SourceGroup:
		name, err = s.platform.GroupMemberProfile(ctx, ev.GroupID, ev.UserID)
	case domain.SourceRoom:
		name, err = s.platform.RoomMemberProfile(ctx, ev.RoomID, ev.UserID)
	default:
		name, err = s.platform.Profile(ctx, ev.UserID)
	}
	if err != nil {
		s.log.Warn("profile lookup failed", "user_id", ev.UserID, "source_type", ev.SourceType, "err", err)
		return unknownUserName
	}
	return name
}
