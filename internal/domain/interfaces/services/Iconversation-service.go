package Iservices

import "voice-connector/internal/domain/entities"

// IConversationService is the in-memory conversation store contract.
type IConversationService interface {
	CreateSession() string
	DeleteSession(id string)
	AppendTurns(id string, userTurn, assistantTurn entities.ChatTurn)
	SetActive(id string)
	ActiveSession() (entities.ConversationSession, bool)
	Session(id string) (entities.ConversationSession, bool)
	Sessions() []entities.ConversationSession
	OnSessionCreated(fn func(id string))
}
