package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"collectdash/pkg/contracts/domain"
)

// SessionStore keeps live sessions in memory until they expire.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSessionStore creates a store whose sessions live for ttl. Expired
// sessions are swept every sweepEvery when it is positive; call Stop to end
// the sweep.
func NewSessionStore(ttl, sweepEvery time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepEvery > 0 {
		go s.cleanup(sweepEvery)
	}
	return s
}

// Create issues a new session.
func (s *SessionStore) Create(username string, role domain.Role, agentName string) domain.Session {
	now := s.now()
	sess := domain.Session{
		Token:     uuid.NewString(),
		Username:  username,
		Role:      role,
		AgentName: agentName,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a live session. Expired sessions are removed.
func (s *SessionStore) Get(token string) (domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.Delete(token)
		return domain.Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Delete ends a session. Unknown tokens are ignored.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop ends the background sweep.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *SessionStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

func (s *SessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
