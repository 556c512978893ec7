package openairt

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client event types (sent from client to server).
const (
	eventTypeSessionUpdate = "session.update"

	eventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	eventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	eventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	eventTypeConversationItemCreate = "conversation.item.create"

	eventTypeResponseCreate = "response.create"
	eventTypeResponseCancel = "response.cancel"
)

// Server event types (sent from server to client).
const (
	eventTypeError = "error"

	eventTypeSessionCreated = "session.created"

	eventTypeResponseCreated = "response.created"
	eventTypeResponseDone    = "response.done"

	eventTypeResponseTextDelta  = "response.text.delta"
	eventTypeResponseAudioDelta = "response.audio.delta"

	eventTypeSpeechStarted = "input_audio_buffer.speech_started"
	eventTypeSpeechStopped = "input_audio_buffer.speech_stopped"
)

// serverEvent is the decoded envelope of one Realtime server event. Only the
// fields the adapter consumes are mapped; Raw keeps the full frame.
type serverEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitzero"`

	// Delta carries text for text deltas and base64 audio for audio deltas.
	Delta string `json:"delta,omitzero"`

	// Session is present on session.created.
	Session *sessionInfo `json:"session,omitzero"`

	// Error is present on error events.
	Error *wireError `json:"error,omitzero"`

	Raw json.RawMessage `json:"-"`
}

type sessionInfo struct {
	ID string `json:"id"`
}

// wireError is the error payload of a Realtime error event.
type wireError struct {
	Type    string `json:"type,omitzero"`
	Code    string `json:"code,omitzero"`
	Message string `json:"message,omitzero"`
}

func parseServerEvent(data []byte) (*serverEvent, error) {
	var event serverEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("openairt: parse server event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("openairt: server event missing type")
	}
	event.Raw = data
	return &event, nil
}

// generateEventID generates a unique client event ID.
func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}
