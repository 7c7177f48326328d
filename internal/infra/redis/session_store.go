package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"popquiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Engines live in process; Redis only carries a liveness marker per session
// so operators can count open screens across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Put(sessionID string, engine *app.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = engine
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), sessionKey(sessionID), "1", s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.sessions[sessionID]
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), sessionKey(sessionID), s.ttl).Err()
	}
	return engine, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), sessionKey(sessionID)).Err()
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}
