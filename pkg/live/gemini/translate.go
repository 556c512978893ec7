package gemini

import (
	"sync"

	"google.golang.org/genai"

	"github.com/haivivi/livepipe/pkg/live"
)

// translator tracks one backend turn and converts wire messages into
// normalized responses. It owns the interruption policy: once a turn is
// interrupted, the remaining fragments of that turn are dropped, while
// fragments already emitted stand.
//
// Both the send path (client activity signals) and the receive loop feed
// the translator, so its state is mutex guarded.
type translator struct {
	mu sync.Mutex

	// turnActive is true between the first fragment of a model turn and
	// its completion or interruption.
	turnActive bool

	// suppressed is true while the remainder of an abandoned turn is being
	// dropped. It resets on the backend's next turn boundary signal.
	suppressed bool
}

// serverMessage converts one Live server message into zero or more
// normalized responses.
func (t *translator) serverMessage(msg *genai.LiveServerMessage) []*live.Response {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	sc := msg.ServerContent

	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*live.Response

	if sc.Interrupted {
		if t.suppressed {
			// The client already barged in and an interruption event was
			// synthesized; this is the backend acknowledging it.
			t.suppressed = false
			t.turnActive = false
		} else {
			out = append(out, &live.Response{Interrupted: true, Raw: msg})
			t.turnActive = false
			t.suppressed = true
		}
		return out
	}

	if sc.ModelTurn != nil && !t.suppressed {
		if content := fromGenaiContent(sc.ModelTurn); content != nil {
			t.turnActive = true
			out = append(out, &live.Response{Content: content, Raw: msg})
		}
	}

	if sc.TurnComplete {
		if t.suppressed {
			// Tail of an abandoned turn; the boundary was already reported
			// as an interruption.
			t.suppressed = false
			t.turnActive = false
		} else {
			t.turnActive = false
			out = append(out, &live.Response{TurnComplete: true, Raw: msg})
		}
	}

	return out
}

// clientActivityStart implements the barge-in edge case: an activity start
// arriving while a model turn is still in flight abandons that turn. It
// returns the synthetic interruption event to emit, or nil when no turn was
// in progress.
func (t *translator) clientActivityStart() *live.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.turnActive || t.suppressed {
		return nil
	}
	t.turnActive = false
	t.suppressed = true
	return &live.Response{Interrupted: true}
}

// toGenaiContent converts normalized content to the wire representation.
func toGenaiContent(c *live.Content) *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch v := p.(type) {
		case live.Text:
			parts = append(parts, &genai.Part{Text: string(v)})
		case *live.Blob:
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{
				MIMEType: v.MIMEType,
				Data:     v.Data,
			}})
		}
	}
	return &genai.Content{Role: string(c.Role), Parts: parts}
}

// fromGenaiContent converts a wire content fragment into normalized content.
// Returns nil when the fragment carries no usable parts.
func fromGenaiContent(c *genai.Content) *live.Content {
	if c == nil {
		return nil
	}
	parts := make([]live.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.Text != "":
			parts = append(parts, live.Text(p.Text))
		case p.InlineData != nil:
			parts = append(parts, &live.Blob{
				MIMEType: p.InlineData.MIMEType,
				Data:     p.InlineData.Data,
			})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	role := live.RoleModel
	if c.Role != "" {
		role = live.Role(c.Role)
	}
	return &live.Content{Role: role, Parts: parts}
}
