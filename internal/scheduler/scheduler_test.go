package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAddJobRejectsInvalidExpression(t *testing.T) {
	s := New()
	defer s.Stop()

	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if err := s.AddJob("*/5 * * * *", func() {}); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
}

func TestAddEveryRunsTask(t *testing.T) {
	s := New()
	defer s.Stop()

	// cron.Every rounds intervals up to one second.
	var runs atomic.Int32
	s.AddEvery(time.Second, func() {
		runs.Add(1)
	})

	deadline := time.After(5 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduled task never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// A panicking job must not stop subsequent runs.
func TestPanicInJobIsRecovered(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs atomic.Int32
	s.AddEvery(time.Second, func() {
		runs.Add(1)
		panic("boom")
	})

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("task ran %d times, want at least 2 (panic should be recovered)", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
