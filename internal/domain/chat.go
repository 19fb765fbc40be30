package domain

// Chat message roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by prompt
// assembly and the LLM integration. It is built fresh per request and never
// persisted.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
