package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/gacha/internal/present"
	"github.com/lehigh-university-libraries/gacha/internal/widget"
)

// Session is one headless widget hosted by the server
type Session struct {
	ID        string
	Folder    string
	CreatedAt time.Time
	Widget    *widget.Widget
	View      *present.Snapshot
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.NewString()
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// Add stores the session unless the store already holds limit sessions.
// A limit of zero or less means no limit.
func (s *SessionStore) Add(session *Session, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && len(s.sessions) >= limit {
		return false
	}
	s.sessions[session.ID] = session
	return true
}

// GetAll returns every session, oldest first
func (s *SessionStore) GetAll() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session and returns it so the caller can stop it
func (s *SessionStore) Delete(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return session, exists
}

// Len returns the number of sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
