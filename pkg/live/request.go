package live

import "fmt"

// Role identifies the producer of a Content event.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) String() string {
	return string(r)
}

// Part is one element of a Content payload, either Text or *Blob.
type Part interface {
	isPart()
}

// Text is a plain text part.
type Text string

func (Text) isPart() {}

// Blob is an inline binary part with a MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

func (*Blob) isPart() {}

// Request is one unit of inbound client traffic. It is a closed union:
// *Content, *RealtimeBlob, *Activity, or Close. Consumers are expected to
// switch exhaustively over these four variants.
type Request interface {
	isLiveRequest()
}

// Content is a unit of conversational content. Parts is ordered and must be
// non-empty.
type Content struct {
	Role  Role
	Parts []Part
}

func (*Content) isLiveRequest() {}

// Text concatenates all text parts of the content.
func (c *Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if t, ok := p.(Text); ok {
			out += string(t)
		}
	}
	return out
}

// RealtimeBlob is a raw realtime media chunk (audio or video). The queue and
// the runner treat Data as opaque bytes; no parsing is performed.
type RealtimeBlob struct {
	MIMEType string
	Data     []byte
}

func (*RealtimeBlob) isLiveRequest() {}

// ActivityKind is the direction of an activity control signal.
type ActivityKind int

const (
	// ActivityStart marks the beginning of a realtime input turn, for
	// example voice activity onset.
	ActivityStart ActivityKind = iota

	// ActivityEnd marks the end of a realtime input turn.
	ActivityEnd
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityStart:
		return "start"
	case ActivityEnd:
		return "end"
	default:
		return fmt.Sprintf("ActivityKind(%d)", int(k))
	}
}

// Activity is a control signal bracketing a realtime input turn. It carries
// no content.
type Activity struct {
	Kind ActivityKind
}

func (*Activity) isLiveRequest() {}

// Close is the sentinel request signaling the producer will send no more
// events. Enqueuing it transitions the queue to closing.
type Close struct{}

func (Close) isLiveRequest() {}

// validateRequest rejects malformed requests before they enter the queue.
func validateRequest(req Request) error {
	switch r := req.(type) {
	case *Content:
		if r == nil || len(r.Parts) == 0 {
			return fmt.Errorf("live: content must have at least one part")
		}
	case *RealtimeBlob:
		if r == nil || len(r.Data) == 0 {
			return fmt.Errorf("live: realtime blob must not be empty")
		}
	case *Activity:
		if r == nil {
			return fmt.Errorf("live: activity must not be nil")
		}
	case Close:
	case nil:
		return fmt.Errorf("live: request must not be nil")
	default:
		return fmt.Errorf("live: unknown request type %T", req)
	}
	return nil
}
