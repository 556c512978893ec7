package openairt

import (
	"encoding/base64"
	"testing"

	"github.com/haivivi/livepipe/pkg/live"
)

func mustParse(t *testing.T, raw string) *serverEvent {
	t.Helper()
	event, err := parseServerEvent([]byte(raw))
	if err != nil {
		t.Fatalf("parseServerEvent(%s) = %v", raw, err)
	}
	return event
}

func TestTextDeltaTurn(t *testing.T) {
	var tr translator

	frames := []string{
		`{"type":"response.created"}`,
		`{"type":"response.text.delta","delta":"Hel"}`,
		`{"type":"response.text.delta","delta":"lo"}`,
		`{"type":"response.done"}`,
	}
	var got []*live.Response
	for _, f := range frames {
		if resp := tr.serverEvent(mustParse(t, f)); resp != nil {
			got = append(got, resp)
		}
	}

	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Content.Text() != "Hel" || got[1].Content.Text() != "lo" {
		t.Errorf("deltas = %q, %q", got[0].Content.Text(), got[1].Content.Text())
	}
	if got[0].TurnComplete || got[1].TurnComplete {
		t.Error("delta events must not carry TurnComplete")
	}
	if !got[2].TurnComplete || got[2].Interrupted {
		t.Errorf("final event = %+v, want pure TurnComplete", got[2])
	}
}

func TestAudioDelta(t *testing.T) {
	var tr translator
	tr.serverEvent(mustParse(t, `{"type":"response.created"}`))

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	raw := `{"type":"response.audio.delta","delta":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`
	resp := tr.serverEvent(mustParse(t, raw))
	if resp == nil || resp.Content == nil {
		t.Fatalf("audio delta = %v", resp)
	}
	blob, ok := resp.Content.Parts[0].(*live.Blob)
	if !ok {
		t.Fatalf("part type = %T, want *live.Blob", resp.Content.Parts[0])
	}
	if string(blob.Data) != string(pcm) {
		t.Errorf("audio data = %v, want %v", blob.Data, pcm)
	}
}

func TestServerVADBargeIn(t *testing.T) {
	var tr translator

	tr.serverEvent(mustParse(t, `{"type":"response.created"}`))
	first := tr.serverEvent(mustParse(t, `{"type":"response.text.delta","delta":"partial"}`))
	if first == nil {
		t.Fatal("expected delta before barge-in")
	}

	interrupt := tr.serverEvent(mustParse(t, `{"type":"input_audio_buffer.speech_started"}`))
	if interrupt == nil || !interrupt.Interrupted {
		t.Fatalf("speech_started = %+v, want interruption", interrupt)
	}
	if interrupt.TurnComplete {
		t.Error("interruption must not carry TurnComplete")
	}

	// Remainder of the abandoned response is dropped.
	if resp := tr.serverEvent(mustParse(t, `{"type":"response.text.delta","delta":"late"}`)); resp != nil {
		t.Errorf("suppressed delta leaked: %+v", resp)
	}
	if resp := tr.serverEvent(mustParse(t, `{"type":"response.done"}`)); resp != nil {
		t.Errorf("suppressed done leaked: %+v", resp)
	}

	// Next response flows normally.
	tr.serverEvent(mustParse(t, `{"type":"response.created"}`))
	if resp := tr.serverEvent(mustParse(t, `{"type":"response.text.delta","delta":"next"}`)); resp == nil {
		t.Error("new response delta was dropped")
	}
}

func TestSpeechStartedWhileIdle(t *testing.T) {
	var tr translator
	if resp := tr.serverEvent(mustParse(t, `{"type":"input_audio_buffer.speech_started"}`)); resp != nil {
		t.Errorf("idle speech_started = %+v, want nil", resp)
	}
}

func TestErrorEventBecomesRejection(t *testing.T) {
	var tr translator
	raw := `{"type":"error","error":{"type":"invalid_request_error","code":"invalid_value","message":"bad audio"}}`
	resp := tr.serverEvent(mustParse(t, raw))
	if resp == nil || resp.Rejected == nil {
		t.Fatalf("error event = %+v, want rejection", resp)
	}
	if resp.Rejected.Code != "invalid_value" || resp.Rejected.Reason != "bad audio" {
		t.Errorf("rejection = %+v", resp.Rejected)
	}
	if resp.TurnComplete || resp.Interrupted {
		t.Error("rejection must not carry control flags")
	}
}

func TestParseServerEvent(t *testing.T) {
	if _, err := parseServerEvent([]byte(`not json`)); err == nil {
		t.Error("malformed frame parsed without error")
	}
	if _, err := parseServerEvent([]byte(`{}`)); err == nil {
		t.Error("frame without type parsed without error")
	}
	event := mustParse(t, `{"type":"session.created","session":{"id":"sess_123"}}`)
	if event.Session == nil || event.Session.ID != "sess_123" {
		t.Errorf("session = %+v", event.Session)
	}
}
