package live

import (
	"context"
	"iter"
)

// Response is one normalized event emitted by a backend adapter.
//
// Exactly one of Content or the control flags is meaningful per event.
// TurnComplete and Interrupted are never both set: an interruption means the
// in-progress turn was abandoned, not completed. Deltas already delivered
// before an interruption stand; the turn is simply unfinished.
type Response struct {
	// Content is an incremental fragment of model output belonging to the
	// in-progress turn, nil on pure control events.
	Content *Content

	// TurnComplete is set on the event corresponding to the backend's
	// explicit turn-done signal. All prior events of the turn carry false.
	TurnComplete bool

	// Interrupted is set when the backend reports barge-in: client input
	// arrived while the model was still generating.
	Interrupted bool

	// Rejected carries a per-event backend rejection. The session
	// continues; the consumer decides how to react.
	Rejected *RejectedError

	// Raw holds the backend-specific message this event was derived from,
	// for callers that need wire-level details.
	Raw any
}

// Connection is one live duplex session with a backend. Implementations own
// their backend stream handles exclusively; no other component reads or
// writes the underlying wire stream.
//
// A closed connection rejects Send with ErrConnectionClosed and yields an
// empty terminal Receive sequence.
type Connection interface {
	// Send forwards one request to the backend. It may fail with
	// ErrConnectionClosed, a *RejectedError, or an ErrBackendUnavailable
	// wrapped transport error. Sending an Activity end signal may trigger
	// backend-side turn processing. A Close request half-closes the
	// connection: further sends are rejected while Receive keeps draining
	// until the backend ends the stream or Close is called.
	Send(ctx context.Context, req Request) error

	// Receive yields normalized response events in backend arrival order
	// until the backend ends the session or the connection is closed.
	// Iteration terminates (without error) when the connection is closed
	// locally; transport failures are yielded as ErrBackendUnavailable
	// wrapped errors. Events are consumed exactly once.
	Receive() iter.Seq2[*Response, error]

	// Close releases backend resources. It is idempotent; any in-flight
	// Receive sequence terminates at the next opportunity.
	Close() error
}
