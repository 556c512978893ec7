// Package gemini implements the live.Connection contract on top of the
// Gemini Live API (google.golang.org/genai).
//
// The adapter maps the normalized request model onto the Live wire protocol:
// Content becomes a client-content turn, RealtimeBlob becomes realtime media
// input, and Activity signals become explicit activity markers (used when
// server-side voice activity detection is disabled). Inbound server messages
// are translated into normalized Response events: one content delta per
// model-turn fragment, a turn-complete marker on the backend's explicit
// signal, and an interruption marker on barge-in.
//
//	conn, err := gemini.Dial(ctx, &gemini.Config{
//	    Model:  "gemini-2.0-flash-live-001",
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
package gemini
