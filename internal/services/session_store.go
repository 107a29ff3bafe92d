package services

import (
	"log"
	"sync"
	"time"

	"vitacore/internal/models"
)

// SessionStore is the injectable registry of completion sessions, keyed by
// session key. A key is either Absent (no entry) or holds exactly one
// session. All read-modify-write sequences on one key must run under that
// key's lock (KeyLock); different keys proceed fully in parallel.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.CompletionSession
	locks    map[string]*sync.Mutex
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.CompletionSession),
		locks:    make(map[string]*sync.Mutex),
	}
}

// KeyLock returns the mutex serializing operations on one session key.
// Locks are created on first use and never removed: handing out a second
// mutex for a key while a caller still holds the first would let two
// concurrent starts both observe the key as absent.
func (s *SessionStore) KeyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Get returns the live session for a key. Callers must hold the key lock
// while reading or mutating the returned session.
func (s *SessionStore) Get(key string) (*models.CompletionSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	return sess, ok
}

// Put registers a session under its key
func (s *SessionStore) Put(sess *models.CompletionSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key] = sess
}

// Delete removes a session; deleting an absent key is a no-op
func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Count returns the number of active sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap removes sessions whose last activity is older than maxIdle.
// Returns the number of sessions removed.
func (s *SessionStore) Reap(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		log.Printf("🧹 [SESSIONS] Reaped %d stale session(s) (idle > %v)", removed, maxIdle)
	}
	return removed
}
