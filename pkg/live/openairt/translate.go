package openairt

import (
	"encoding/base64"
	"sync"

	"github.com/haivivi/livepipe/pkg/live"
)

// translator converts Realtime server events into normalized responses and
// tracks the active response turn for interruption handling. It is shared
// between the send path and the read loop, so its state is mutex guarded.
type translator struct {
	mu sync.Mutex

	// responding is true while the server is generating a response.
	responding bool

	// suppressed drops the remainder of an abandoned response.
	suppressed bool
}

func (t *translator) serverEvent(event *serverEvent) *live.Response {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Type {
	case eventTypeResponseCreated:
		t.responding = true
		t.suppressed = false
		return nil

	case eventTypeResponseTextDelta:
		if t.suppressed || event.Delta == "" {
			return nil
		}
		t.responding = true
		return &live.Response{
			Content: &live.Content{
				Role:  live.RoleModel,
				Parts: []live.Part{live.Text(event.Delta)},
			},
			Raw: event.Raw,
		}

	case eventTypeResponseAudioDelta:
		if t.suppressed || event.Delta == "" {
			return nil
		}
		audio, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			return &live.Response{
				Rejected: &live.RejectedError{Code: "bad_audio_delta", Reason: err.Error()},
				Raw:      event.Raw,
			}
		}
		t.responding = true
		return &live.Response{
			Content: &live.Content{
				Role:  live.RoleModel,
				Parts: []live.Part{&live.Blob{MIMEType: "audio/pcm", Data: audio}},
			},
			Raw: event.Raw,
		}

	case eventTypeResponseDone:
		wasSuppressed := t.suppressed
		t.responding = false
		t.suppressed = false
		if wasSuppressed {
			// The turn was abandoned; its boundary was already reported as
			// an interruption.
			return nil
		}
		return &live.Response{TurnComplete: true, Raw: event.Raw}

	case eventTypeSpeechStarted:
		// Server-side VAD detected barge-in while a response was playing.
		if !t.responding || t.suppressed {
			return nil
		}
		t.suppressed = true
		return &live.Response{Interrupted: true, Raw: event.Raw}

	case eventTypeError:
		rejected := &live.RejectedError{}
		if event.Error != nil {
			rejected.Code = event.Error.Code
			rejected.Reason = event.Error.Message
		}
		return &live.Response{Rejected: rejected, Raw: event.Raw}

	default:
		return nil
	}
}

// clientActivityStart abandons the in-flight response on client barge-in.
// Returns the synthetic interruption event, or nil when the server is idle.
func (t *translator) clientActivityStart() *live.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.responding || t.suppressed {
		return nil
	}
	t.suppressed = true
	return &live.Response{Interrupted: true}
}

// cancelPending reports whether a response is currently being generated.
func (t *translator) cancelPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.responding
}
