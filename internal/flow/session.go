package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rahimovschool/intakebot/internal/models"
)

// SessionManager owns every in-memory conversation session, keyed by user
// id. Sessions are created lazily, mutated only while handling a message
// from their owning user, and never persisted.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*models.Session
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[int64]*models.Session)}
}

// GetOrCreate returns the session for the given user, creating an idle one
// on first contact.
func (sm *SessionManager) GetOrCreate(userID int64) *models.Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sess, ok := sm.sessions[userID]; ok {
		return sess
	}

	now := time.Now()
	sess := &models.Session{
		UserID:    userID,
		State:     models.StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sm.sessions[userID] = sess
	slog.Debug("SessionManager created session", "userID", userID)
	return sess
}

// Count returns the number of sessions currently held in memory.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ActiveCount returns the number of sessions that are mid-form.
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	active := 0
	for _, sess := range sm.sessions {
		if sess.State != models.StateIdle {
			active++
		}
	}
	return active
}

// EvictIdle drops sessions with no activity for longer than maxIdle and
// returns how many were removed. Abandoned mid-form sessions would otherwise
// occupy memory for the lifetime of the process.
func (sm *SessionManager) EvictIdle(maxIdle time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for userID, sess := range sm.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(sm.sessions, userID)
			evicted++
			slog.Debug("SessionManager evicted idle session", "userID", userID, "state", sess.State, "last_activity", sess.UpdatedAt)
		}
	}
	if evicted > 0 {
		slog.Info("SessionManager eviction sweep completed", "evicted", evicted, "remaining", len(sm.sessions))
	}
	return evicted
}
