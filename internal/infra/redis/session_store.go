package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mcq-practice-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions and their subscribers stay in process; Redis carries a liveness
// marker per signed-in user so other instances and operators can see who is
// online.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(uid string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[uid]; ok {
		s.touch(uid)
		return session
	}
	session := app.NewSession(uid)
	s.sessions[uid] = session
	s.touch(uid)
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
	if !ok {
		return
	}
	session.Close()
	_ = s.client.Del(context.Background(), s.key(uid)).Err()
}

// Online reports whether any instance holds a live session for uid.
func (s *SessionStore) Online(ctx context.Context, uid string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(uid)).Result()
	if err != nil {
		return false, backendError(err)
	}
	return n > 0, nil
}

// best-effort liveness marker, refreshed on every sign-in or token refresh
func (s *SessionStore) touch(uid string) {
	_ = s.client.Set(context.Background(), s.key(uid), "1", s.ttl).Err()
}

func (s *SessionStore) key(uid string) string {
	return "mcq:session:" + uid
}
