package live

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrDone is returned by Dequeue and event streams when the stream is
	// drained and closed. It signals normal end of stream, not a failure.
	ErrDone = errors.New("live: done")

	// ErrQueueClosed is returned by Enqueue after Close has been called or a
	// Close request has been enqueued.
	ErrQueueClosed = errors.New("live: request queue closed")

	// ErrQueueFull is returned by Enqueue when the queue's soft buffer bound
	// is exceeded.
	ErrQueueFull = errors.New("live: request queue full")

	// ErrConnectionClosed is returned by Send on a closed connection.
	ErrConnectionClosed = errors.New("live: connection closed")

	// ErrSessionClosed is returned by session operations after the session
	// has reached its terminal state.
	ErrSessionClosed = errors.New("live: session closed")

	// ErrBackendUnavailable marks transient backend I/O failures. These are
	// session-fatal; retry policy belongs to the caller.
	ErrBackendUnavailable = errors.New("live: backend unavailable")
)

// Unavailable wraps a transport error so that it matches
// ErrBackendUnavailable while preserving the original cause chain.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// RejectedError reports that the backend refused a specific request or event.
// It does not terminate the session; it is surfaced to the consumer as an
// error-tagged Response.
type RejectedError struct {
	// Code is the backend error code, if any.
	Code string

	// Reason is the human-readable rejection reason.
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("live: backend rejected: %s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("live: backend rejected: %s", e.Reason)
}
