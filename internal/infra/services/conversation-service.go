package services

import (
	"fmt"
	"sync"
	"time"
	"voice-connector/internal/domain/entities"
	"voice-connector/internal/infra/logger"
)

// ConversationService holds every live conversation in memory,
// newest-created first. Nothing is persisted; all sessions are gone
// at process end. Every mutation runs under one mutex so an append
// racing a delete of the same session deterministically no-ops
// instead of reviving it.
type ConversationService struct {
	Logger *logger.Logger

	mu       sync.Mutex
	sessions []entities.ConversationSession
	activeID string
	onCreate []func(id string)
}

func NewConversationService(logger *logger.Logger) *ConversationService {
	return &ConversationService{Logger: logger}
}

// OnSessionCreated registers a hook fired after every new session,
// used by the pipeline to clear its displayed error state.
func (cs *ConversationService) OnSessionCreated(fn func(id string)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.onCreate = append(cs.onCreate, fn)
}

// CreateSession inserts a new empty session at the front of the list
// and makes it active.
func (cs *ConversationService) CreateSession() string {
	cs.mu.Lock()
	session := entities.NewConversationSession()
	cs.sessions = append([]entities.ConversationSession{session}, cs.sessions...)
	cs.activeID = session.ID
	hooks := make([]func(id string), len(cs.onCreate))
	copy(hooks, cs.onCreate)
	cs.mu.Unlock()

	for _, fn := range hooks {
		fn(session.ID)
	}

	cs.Logger.Info(fmt.Sprintf("Created conversation %s", session.ID))
	return session.ID
}

// DeleteSession removes the session if present; a missing id is not
// an error, it may have been removed concurrently. Deleting the
// active session unsets the active reference, no replacement is
// auto-selected.
func (cs *ConversationService) DeleteSession(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for i, session := range cs.sessions {
		if session.ID == id {
			cs.sessions = append(cs.sessions[:i], cs.sessions[i+1:]...)
			if cs.activeID == id {
				cs.activeID = ""
			}
			return
		}
	}
}

// AppendTurns appends the user/assistant pair atomically. The first
// append also derives the title from the user turn. A missing id is a
// silent no-op: the session was deleted while the turn was in flight.
func (cs *ConversationService) AppendTurns(id string, userTurn, assistantTurn entities.ChatTurn) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for i := range cs.sessions {
		if cs.sessions[i].ID != id {
			continue
		}
		if len(cs.sessions[i].Turns) == 0 {
			cs.sessions[i].Title = entities.DeriveTitle(userTurn.Content)
		}
		cs.sessions[i].Turns = append(cs.sessions[i].Turns, userTurn, assistantTurn)
		cs.sessions[i].UpdatedAt = time.Now()
		return
	}

	cs.Logger.Debug(fmt.Sprintf("Dropped turns for deleted conversation %s", id))
}

// SetActive activates the session if it exists, otherwise no-op.
func (cs *ConversationService) SetActive(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, session := range cs.sessions {
		if session.ID == id {
			cs.activeID = id
			return
		}
	}
}

func (cs *ConversationService) ActiveSession() (entities.ConversationSession, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.activeID == "" {
		return entities.ConversationSession{}, false
	}
	return cs.findLocked(cs.activeID)
}

func (cs *ConversationService) Session(id string) (entities.ConversationSession, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.findLocked(id)
}

// Sessions returns a snapshot of every session, newest-created first.
func (cs *ConversationService) Sessions() []entities.ConversationSession {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]entities.ConversationSession, len(cs.sessions))
	for i, session := range cs.sessions {
		out[i] = session.Clone()
	}
	return out
}

func (cs *ConversationService) findLocked(id string) (entities.ConversationSession, bool) {
	for _, session := range cs.sessions {
		if session.ID == id {
			return session.Clone(), true
		}
	}
	return entities.ConversationSession{}, false
}
