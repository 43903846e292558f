package verification

import (
	"fmt"
	"sync"
	"time"

	"payrollverify/internal/payroll"
)

// IDGenerator generates unique IDs for sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Session holds one browser session's pipeline state: at most one payroll
// table, one receipt text and one verification outcome at a time. Each entity
// is replaced wholesale by a new upload or verification and is never mutated
// in place. Nothing is persisted; a restart clears everything.
type Session struct {
	ID        string
	Table     *payroll.Table
	Receipt   string
	Outcome   *Outcome
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore keeps sessions in memory, keyed by the session cookie value.
// The mutex guards only the map; requests within one session are serialized
// by the single user driving it.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idGen    IDGenerator
	timeSrc  TimeSource
}

// NewSessionStore creates a SessionStore with default ID generator and time source
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithDeps(&defaultIDGenerator{}, &defaultTimeSource{})
}

// NewSessionStoreWithDeps creates a SessionStore with custom dependencies for testing
func NewSessionStoreWithDeps(idGen IDGenerator, timeSrc TimeSource) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		idGen:    idGen,
		timeSrc:  timeSrc,
	}
}

// Get returns the session for an ID, or nil if it does not exist
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// GetOrCreate returns the session for an ID, creating a fresh one (with a
// newly generated ID) when the ID is empty or unknown.
func (s *SessionStore) GetOrCreate(id string) *Session {
	if id != "" {
		if sess := s.Get(id); sess != nil {
			return sess
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.timeSrc.Now()
	sess := &Session{
		ID:        s.idGen.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}
