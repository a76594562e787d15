package flow

import (
	"testing"
	"time"

	"github.com/rahimovschool/intakebot/internal/models"
)

func TestSessionManagerGetOrCreate(t *testing.T) {
	sm := NewSessionManager()

	first := sm.GetOrCreate(1)
	if first.State != models.StateIdle {
		t.Errorf("new session state = %s, want %s", first.State, models.StateIdle)
	}

	second := sm.GetOrCreate(1)
	if first != second {
		t.Error("expected the same session instance for the same user")
	}
	if sm.Count() != 1 {
		t.Errorf("Count = %d, want 1", sm.Count())
	}
}

func TestSessionManagerActiveCount(t *testing.T) {
	sm := NewSessionManager()
	sm.GetOrCreate(1)
	sm.GetOrCreate(2).State = models.StateAwaitingName
	sm.GetOrCreate(3).State = models.StateAwaitingPhone

	if got := sm.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
}

func TestSessionManagerEvictIdle(t *testing.T) {
	sm := NewSessionManager()

	stale := sm.GetOrCreate(1)
	stale.State = models.StateAwaitingName
	stale.UpdatedAt = time.Now().Add(-48 * time.Hour)

	fresh := sm.GetOrCreate(2)
	fresh.State = models.StateAwaitingPhone

	evicted := sm.EvictIdle(24 * time.Hour)
	if evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if sm.Count() != 1 {
		t.Errorf("Count after eviction = %d, want 1", sm.Count())
	}

	// The survivor must be the fresh session.
	if sm.GetOrCreate(2) != fresh {
		t.Error("fresh session was replaced by eviction")
	}
}
