package app

import (
	"sync"
	"time"

	"mcq-practice-service/internal/domain"
)

// SessionRepository abstracts where per-user sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(uid string) *Session
	Get(uid string) (*Session, bool)
	// Delete drops the session and closes its subscriptions.
	Delete(uid string)
}

// Session holds the reconciled view of one signed-in user and fans profile
// changes out to subscribers.
type Session struct {
	uid       string
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	user        *domain.CurrentUser
	identity    domain.Identity
	subscribers map[chan domain.CurrentUser]struct{}
	closed      bool
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(uid string) *Session {
	return newSessionWithClock(uid, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(uid string, now func() time.Time) *Session {
	return newSessionWithClock(uid, now)
}

func newSessionWithClock(uid string, now func() time.Time) *Session {
	return &Session{
		uid:         uid,
		createdAt:   now(),
		now:         now,
		identity:    domain.Identity{UID: uid},
		subscribers: make(map[chan domain.CurrentUser]struct{}),
	}
}

// UID returns the identity-provider subject this session belongs to.
func (s *Session) UID() string { return s.uid }

// Current returns the last reconciled user, if any.
func (s *Session) Current() (domain.CurrentUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.CurrentUser{}, false
	}
	return cloneCurrentUser(*s.user), true
}

// Identity returns the identity the session was last reconciled from.
func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) setIdentity(ident domain.Identity) {
	s.mu.Lock()
	s.identity = ident
	s.mu.Unlock()
}

// Publish stores user as the current view and broadcasts it.
func (s *Session) Publish(user domain.CurrentUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	user.SyncedAt = s.now().UnixMilli()
	s.user = &user
	s.broadcastLocked()
}

// Subscribe returns a channel that receives every published view, starting
// with the current one when present. The caller must invoke cancel.
func (s *Session) Subscribe() (<-chan domain.CurrentUser, func()) {
	ch := make(chan domain.CurrentUser, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	if s.user != nil {
		ch <- cloneCurrentUser(*s.user)
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close ends the session: subscribers are closed and further publishes dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.user = nil
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) broadcastLocked() {
	view := cloneCurrentUser(*s.user)
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// slow subscriber: drop its oldest view so the latest always lands
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func cloneCurrentUser(u domain.CurrentUser) domain.CurrentUser {
	if u.ScoreByCategory != nil {
		scores := make(map[string]int, len(u.ScoreByCategory))
		for k, v := range u.ScoreByCategory {
			scores[k] = v
		}
		u.ScoreByCategory = scores
	}
	if u.AnsweredMCQs != nil {
		answered := make(map[string]bool, len(u.AnsweredMCQs))
		for k, v := range u.AnsweredMCQs {
			answered[k] = v
		}
		u.AnsweredMCQs = answered
	}
	return u
}
