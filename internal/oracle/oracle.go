package oracle

import "context"

// Role values for transcript messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation with the oracle.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Oracle is a chat-style language model. Chat sends the whole conversation
// so far and returns the model's next message.
type Oracle interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
