package models

import (
	"testing"
	"time"
)

func TestSessionReset(t *testing.T) {
	s := &Session{
		UserID:    42,
		State:     StateAwaitingPhone,
		Name:      "Ali",
		Location:  "Chilonzor",
		Phone:     "+998901234567",
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}

	before := s.UpdatedAt
	s.Reset()

	if s.State != StateIdle {
		t.Errorf("expected state %s after reset, got %s", StateIdle, s.State)
	}
	if s.Name != "" || s.Location != "" || s.Phone != "" {
		t.Errorf("expected fields cleared after reset, got name=%q location=%q phone=%q", s.Name, s.Location, s.Phone)
	}
	if !s.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance on reset")
	}
	if s.UserID != 42 {
		t.Errorf("reset must not change UserID, got %d", s.UserID)
	}
}

func TestSessionTouch(t *testing.T) {
	s := &Session{UpdatedAt: time.Now().Add(-time.Minute)}
	before := s.UpdatedAt
	s.Touch()
	if !s.UpdatedAt.After(before) {
		t.Error("expected Touch to advance UpdatedAt")
	}
}
