// Package chat implements the conversational survey orchestrator: the
// interview state machine, its prompt/extraction contract with the language
// model, and per-session state with expiry.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// Phase is the interview stage. Transitions are strictly forward:
// demographics -> survey -> complete.
type Phase string

const (
	PhaseDemographics Phase = "demographics"
	PhaseSurvey       Phase = "survey"
	PhaseComplete     Phase = "complete"
)

// Turn is one conversation message, replayed to the model on every call.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session is the in-flight state of one interview. Questions is an immutable
// snapshot of the catalog taken at creation, so catalog edits cannot disturb
// an interview in progress.
type Session struct {
	ID              string            `json:"id"`
	Messages        []Turn            `json:"messages"`
	Demographics    Demographics      `json:"demographics"`
	Answers         map[uint]string   `json:"answers"`
	Questions       []models.Question `json:"questions"`
	Phase           Phase             `json:"phase"`
	CurrentQuestion int               `json:"current_question"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewSession creates a fresh session in the demographics phase with a
// snapshot of the question catalog.
func NewSession(questions []models.Question) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Answers:   make(map[uint]string),
		Questions: questions,
		Phase:     PhaseDemographics,
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy so callers can mutate freely and persist only on
// success.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = append([]Turn(nil), s.Messages...)
	out.Questions = append([]models.Question(nil), s.Questions...)
	out.Demographics = s.Demographics.Clone()
	out.Answers = make(map[uint]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}

// QuestionByID finds a question in the session's snapshot.
func (s *Session) QuestionByID(id uint) *models.Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// ErrSessionNotFound means the session id is unknown or has expired; the
// client must start a new interview.
var ErrSessionNotFound = errors.New("chat: session not found or expired")

// SessionStore is the session repository: in-memory for a single process,
// Redis-backed for multi-instance deployments. Get returns a private copy;
// mutations become visible only through Put.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Sweep evicts sessions older than the store's TTL and reports how many
	// were removed.
	Sweep(ctx context.Context) (int, error)
}

// MemoryStore is the default SessionStore: a mutex-guarded map with periodic
// TTL eviction.
type MemoryStore struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a MemoryStore evicting sessions older than ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns a deep copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Put stores a deep copy of the session.
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = s.Clone()
	m.mu.Unlock()
	return nil
}

// Delete removes a session. Deleting an absent id is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep evicts expired sessions.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
