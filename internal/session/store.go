// Package session tracks per-user conversational sessions with the
// remote agent.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds conversation continuity state for one user.
type Session struct {
	ID           string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	MessageCount int       `json:"messageCount"`
}

// Store is a concurrency-safe map of userID to session. At most one
// session exists per user at any time.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the user's session, creating one lazily on first
// use. LastActivity is refreshed on every call. The returned value is a
// copy; use IncrementMessages to bump the message counter.
func (s *Store) GetOrCreate(userID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		now := time.Now()
		sess = &Session{
			ID:        newSessionID(),
			CreatedAt: now,
		}
		s.sessions[userID] = sess
	}
	sess.LastActivity = time.Now()
	return *sess
}

// IncrementMessages bumps the message counter and refreshes activity,
// creating the session if it does not exist yet. Returns the updated
// session snapshot.
func (s *Store) IncrementMessages(userID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{
			ID:        newSessionID(),
			CreatedAt: time.Now(),
		}
		s.sessions[userID] = sess
	}
	sess.MessageCount++
	sess.LastActivity = time.Now()
	return *sess
}

// Get returns the user's session without refreshing activity.
func (s *Store) Get(userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// End removes the user's session and reports whether one existed.
func (s *Store) End(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Sweep removes every session whose LastActivity is older than
// now-maxAge and returns the number removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionInfo pairs a user with their session snapshot for diagnostics.
type SessionInfo struct {
	UserID string `json:"userId"`
	Session
}

// Snapshot returns a copy of all active sessions.
func (s *Store) Snapshot() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for userID, sess := range s.sessions {
		out = append(out, SessionInfo{UserID: userID, Session: *sess})
	}
	return out
}

// StartSweeper runs a background goroutine that periodically removes
// inactive sessions until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(maxAge); removed > 0 {
					slog.Info("Session sweeper removed inactive sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// newSessionID generates a session token that is collision-resistant
// within process lifetime.
func newSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
