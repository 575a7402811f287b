package memory

import (
	"sync"

	"mcq-practice-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(uid string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[uid]; ok {
		return session
	}
	session := app.NewSession(uid)
	s.sessions[uid] = session
	return session
}

func (s *SessionStore) Get(uid string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[uid]
	return session, ok
}

func (s *SessionStore) Delete(uid string) {
	s.mu.Lock()
	session, ok := s.sessions[uid]
	delete(s.sessions, uid)
	s.mu.Unlock()
	if ok {
		session.Close()
	}
}
