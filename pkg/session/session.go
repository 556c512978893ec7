// Package session provides session records for live conversations and the
// Service interface for persisting them.
//
// Two implementations are included: MemoryService for tests and short-lived
// processes, and BadgerService for durable storage. Records are encoded with
// msgpack.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session: not found")

// Event is one transcript entry of a live session.
type Event struct {
	// ID uniquely identifies the event.
	ID string `msgpack:"id"`

	// Author is who produced the event ("user" or "model").
	Author string `msgpack:"author"`

	// Text is the textual content of the event, empty for pure control
	// events.
	Text string `msgpack:"text,omitempty"`

	// TurnComplete marks the end of a model turn.
	TurnComplete bool `msgpack:"turn_complete,omitempty"`

	// Interrupted marks an abandoned model turn.
	Interrupted bool `msgpack:"interrupted,omitempty"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `msgpack:"ts"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(author, text string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// Session is one recorded live conversation.
type Session struct {
	// ID identifies the session within (AppName, UserID).
	ID string `msgpack:"id"`

	// AppName scopes sessions by application.
	AppName string `msgpack:"app_name"`

	// UserID scopes sessions by user.
	UserID string `msgpack:"user_id"`

	// Events is the transcript in append order.
	Events []*Event `msgpack:"events,omitempty"`

	// State holds application-defined session state.
	State map[string]string `msgpack:"state,omitempty"`

	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// Service stores and retrieves session records.
type Service interface {
	// Create creates a new session. A sessionID of "" generates one.
	Create(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// Get returns a session, or ErrNotFound.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// AppendEvent appends one event to a session's transcript.
	AppendEvent(ctx context.Context, appName, userID, sessionID string, event *Event) error

	// List returns all sessions for (appName, userID), newest first.
	List(ctx context.Context, appName, userID string) ([]*Session, error)

	// Delete removes a session. No error if it does not exist.
	Delete(ctx context.Context, appName, userID, sessionID string) error

	// Close releases resources held by the service.
	Close() error
}
