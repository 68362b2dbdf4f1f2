package store

import (
	"context"
	"sync"
	"time"

	"session-relay/internal/domain"
)

// MemoryStore provides a thread-safe in-memory session store.
// Implements domain.SessionStore.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]domain.Session
	retention time.Duration
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a memory store. Expired sessions stay readable for
// retention so a lookup can still report them as expired; the cleanup loop
// drops them afterwards.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[string]domain.Session),
		retention: retention,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Insert stores sess unless the ID is taken.
func (s *MemoryStore) Insert(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return domain.ErrSessionIDCollision
	}
	s.sessions[sess.ID] = *sess
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, found := s.sessions[sessionID]
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

// Delete removes a session. Absent IDs are not an error.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions), nil
}

// Close stops the cleanup loop.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// cleanup removes sessions expired for longer than the retention window.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.retention)
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// cleanupLoop runs periodic cleanup of expired sessions.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}
