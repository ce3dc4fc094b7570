package model

import "github.com/google/uuid"

// Role identifies the sender of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one line of the visible conversation transcript.
// Messages are immutable once created; the transcript as a whole is
// replaced when a new goal is sent or a prior quest is loaded.
type Message struct {
	ID      string
	Role    Role
	Content string
}

// NewMessage creates a transcript message with a fresh local identifier.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}
