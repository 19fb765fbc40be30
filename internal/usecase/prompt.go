package usecase

import (
	"line-chat-agent/internal/domain"
)

// buildPromptMessages assembles the completion request: the persona first,
// then the history oldest to newest, then the new user message last.
func buildPromptMessages(persona, userText string, history []domain.Turn) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: persona})

	for _, turn := range history {
		messages = append(messages, turnToPromptMessages(turn)...)
	}

	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: userText})
	return messages
}

// turnToPromptMessages expands one stored turn into a user/assistant pair.
// Only group turns carry the speaker-name prefix; one-to-one and room
// conversations read naturally without it.
func turnToPromptMessages(turn domain.Turn) []domain.ChatMessage {
	userContent := turn.UserText
	if turn.UserName != "" && turn.GroupID != "" {
		userContent = turn.UserName + ": " + userContent
	}
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: userContent},
		{Role: domain.RoleAssistant, Content: turn.AssistantText},
	}
}
