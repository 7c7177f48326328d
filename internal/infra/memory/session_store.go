package memory

import (
	"sync"

	"popquiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Put(sessionID string, engine *app.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = engine
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.sessions[sessionID]
	return engine, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
