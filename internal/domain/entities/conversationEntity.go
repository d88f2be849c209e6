package entities

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a conversation before its first turn.
const DefaultTitle = "Nova Conversa"

const titleLimit = 30

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message in a conversation. Immutable once appended.
// Transcript is set only when the turn originated from recognized
// speech.
type ChatTurn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Transcript string    `json:"transcript,omitempty"`
}

type ConversationSession struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Turns     []ChatTurn `json:"turns"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewConversationSession creates an empty session with a fresh unique
// id and the default title.
func NewConversationSession() ConversationSession {
	now := time.Now()
	return ConversationSession{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Turns:     []ChatTurn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle applies the first-message title rule: content longer
// than 30 characters is cut at 30 and marked with an ellipsis,
// otherwise it is used verbatim. Derived once, on the first append.
func DeriveTitle(content string) string {
	if len(content) > titleLimit {
		return content[:titleLimit] + "..."
	}
	return content
}

// Clone returns a deep copy so callers never hold a live reference
// into the store.
func (s ConversationSession) Clone() ConversationSession {
	copied := s
	copied.Turns = make([]ChatTurn, len(s.Turns))
	copy(copied.Turns, s.Turns)
	return copied
}
