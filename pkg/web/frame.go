package web

import (
	"fmt"

	"github.com/haivivi/livepipe/pkg/live"
)

// Client frame types.
const (
	FrameContent  = "content"
	FrameBlob     = "blob"
	FrameActivity = "activity"
	FrameClose    = "close"
)

// Server frame types.
const (
	FrameDelta        = "delta"
	FrameTurnComplete = "turn_complete"
	FrameInterrupted  = "interrupted"
	FrameError        = "error"
	FrameClosed       = "closed"
)

// ClientFrame is one JSON message from the client. Data is base64 on the
// wire (encoding/json's []byte convention).
type ClientFrame struct {
	Type     string `json:"type"`
	Role     string `json:"role,omitempty"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

// Request converts the frame into a queue request.
func (f *ClientFrame) Request() (live.Request, error) {
	switch f.Type {
	case FrameContent:
		if f.Text == "" {
			return nil, fmt.Errorf("web: content frame must carry text")
		}
		role := live.Role(f.Role)
		if role == "" {
			role = live.RoleUser
		}
		return &live.Content{Role: role, Parts: []live.Part{live.Text(f.Text)}}, nil

	case FrameBlob:
		return &live.RealtimeBlob{MIMEType: f.MIMEType, Data: f.Data}, nil

	case FrameActivity:
		switch f.Signal {
		case "start":
			return &live.Activity{Kind: live.ActivityStart}, nil
		case "end":
			return &live.Activity{Kind: live.ActivityEnd}, nil
		default:
			return nil, fmt.Errorf("web: unknown activity signal %q", f.Signal)
		}

	case FrameClose:
		return live.Close{}, nil

	default:
		return nil, fmt.Errorf("web: unknown client frame type %q", f.Type)
	}
}

// ServerFrame is one JSON message to the client.
type ServerFrame struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// serverFrames converts one normalized event into wire frames. A content
// event yields one delta frame per part; control flags yield their own
// frames so the client sees them in order.
func serverFrames(resp *live.Response) []ServerFrame {
	var out []ServerFrame

	if resp.Rejected != nil {
		return []ServerFrame{{
			Type:    FrameError,
			Code:    resp.Rejected.Code,
			Message: resp.Rejected.Reason,
		}}
	}

	if resp.Content != nil {
		for _, part := range resp.Content.Parts {
			switch p := part.(type) {
			case live.Text:
				out = append(out, ServerFrame{Type: FrameDelta, Text: string(p)})
			case *live.Blob:
				out = append(out, ServerFrame{Type: FrameDelta, MIMEType: p.MIMEType, Data: p.Data})
			}
		}
	}
	if resp.Interrupted {
		out = append(out, ServerFrame{Type: FrameInterrupted})
	}
	if resp.TurnComplete {
		out = append(out, ServerFrame{Type: FrameTurnComplete})
	}
	return out
}
