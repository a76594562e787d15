// Package models defines the core data structures shared across the intake bot.
//
// It includes the per-user conversation session, the registration record
// written to the spreadsheet, and the transport-neutral incoming message.
package models

import (
	"errors"
	"time"
)

// StateType identifies the next input a conversation session expects.
type StateType string

const (
	// StateIdle means no registration is in progress.
	StateIdle StateType = "IDLE"
	// StateAwaitingName means the session expects the user's name next.
	StateAwaitingName StateType = "AWAITING_NAME"
	// StateAwaitingLocation means the session expects the user's district next.
	StateAwaitingLocation StateType = "AWAITING_LOCATION"
	// StateAwaitingPhone means the session expects the user's phone number next.
	StateAwaitingPhone StateType = "AWAITING_PHONE"
)

// Validation error variables for better error handling and testability
var (
	ErrInvalidName   = errors.New("name must contain only letters and spaces, at least 2 characters")
	ErrEmptyLocation = errors.New("location cannot be empty")
	ErrInvalidPhone  = errors.New("phone number does not match any accepted format")
)

// Session holds the in-progress registration form for one user.
//
// Fields are set only for steps already completed; State always names the
// next expected input. Sessions live in memory only and are lost on restart.
type Session struct {
	UserID    int64
	State     StateType
	Name      string
	Location  string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reset returns the session to idle and clears all collected fields.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Name = ""
	s.Location = ""
	s.Phone = ""
	s.UpdatedAt = time.Now()
}

// Touch records activity on the session for expiry accounting.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// Registration is the immutable artifact derived from a completed session
// plus transport-supplied identity metadata. Sequence is assigned by the
// persistence gateway when the row is appended.
type Registration struct {
	Sequence     int64
	Name         string
	District     string
	Phone        string
	UserID       int64
	DisplayName  string
	Username     string
	RegisteredAt time.Time
}

// Contact is a phone number shared through the transport's contact feature.
// Numbers arriving this way are trusted and skip free-text digit stripping.
type Contact struct {
	PhoneNumber string
	UserID      int64
}

// IncomingMessage is a decoded transport update, reduced to the parts the
// conversation flow needs.
type IncomingMessage struct {
	UserID      int64
	ChatID      int64
	Username    string
	DisplayName string
	Text        string
	Contact     *Contact
	Time        time.Time
}
