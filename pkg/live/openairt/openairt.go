package openairt

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/haivivi/livepipe/pkg/live"
)

const (
	// DefaultURL is the Realtime WebSocket endpoint.
	DefaultURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-realtime-preview"
)

// Config configures a Realtime connection.
type Config struct {
	// Model is the realtime model to dial. Default: DefaultModel.
	Model string

	// APIKey authenticates against the OpenAI API.
	APIKey string

	// URL overrides the WebSocket endpoint. Default: DefaultURL.
	URL string

	// Organization is an optional OpenAI organization ID.
	Organization string

	// Instructions is an optional system prompt for the session.
	Instructions string

	// Modalities selects the output channels, "text" and/or "audio".
	// Default: text only.
	Modalities []string

	// ServerVAD keeps server-side voice activity detection enabled. When
	// false the session runs in manual mode and Activity requests drive
	// commit/clear of the input audio buffer.
	ServerVAD bool
}

type respOrErr struct {
	resp *live.Response
	err  error
}

// Conn is a live.Connection backed by one Realtime WebSocket session.
type Conn struct {
	conn *websocket.Conn
	cfg  *Config
	tr   translator

	events     chan respOrErr
	closeCh    chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
	sendClosed atomic.Bool
	writeMu    sync.Mutex

	mu        sync.Mutex
	sessionID string
}

var _ live.Connection = (*Conn)(nil)

// Dial opens a Realtime session and applies the session configuration.
func Dial(ctx context.Context, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	base := cfg.URL
	if base == "" {
		base = DefaultURL
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")
	if cfg.Organization != "" {
		headers.Set("OpenAI-Organization", cfg.Organization)
	}

	url := fmt.Sprintf("%s?model=%s", base, model)
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, live.Unavailable(fmt.Errorf("openairt: connect (status %d): %w", resp.StatusCode, err))
		}
		return nil, live.Unavailable(fmt.Errorf("openairt: connect: %w", err))
	}

	conn := &Conn{
		conn:    ws,
		cfg:     cfg,
		events:  make(chan respOrErr, 64),
		closeCh: make(chan struct{}),
	}

	if err := conn.sendSessionUpdate(); err != nil {
		_ = ws.Close()
		return nil, err
	}

	go conn.readLoop()

	slog.Debug("openairt: realtime session connected", "model", model)
	return conn, nil
}

func (c *Conn) sendSessionUpdate() error {
	modalities := c.cfg.Modalities
	if len(modalities) == 0 {
		modalities = []string{"text"}
	}
	session := map[string]any{
		"modalities": modalities,
	}
	if c.cfg.Instructions != "" {
		session["instructions"] = c.cfg.Instructions
	}
	if c.cfg.ServerVAD {
		session["turn_detection"] = map[string]any{"type": "server_vad"}
	} else {
		session["turn_detection"] = nil
	}
	return c.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     eventTypeSessionUpdate,
		"session":  session,
	})
}

// Send forwards one request to the backend.
func (c *Conn) Send(ctx context.Context, req live.Request) error {
	if c.closed.Load() || c.sendClosed.Load() {
		return live.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch r := req.(type) {
	case *live.Content:
		if err := c.sendEvent(map[string]any{
			"event_id": generateEventID(),
			"type":     eventTypeConversationItemCreate,
			"item":     contentItem(r),
		}); err != nil {
			return err
		}
		return c.sendEvent(map[string]any{
			"event_id": generateEventID(),
			"type":     eventTypeResponseCreate,
		})

	case *live.RealtimeBlob:
		return c.sendEvent(map[string]any{
			"event_id": generateEventID(),
			"type":     eventTypeInputAudioBufferAppend,
			"audio":    base64.StdEncoding.EncodeToString(r.Data),
		})

	case *live.Activity:
		if r.Kind == live.ActivityStart {
			return c.activityStart()
		}
		return c.activityEnd()

	case live.Close:
		// Half-close: no more client input. The socket stays open so
		// trailing server events can drain; the owner closes the connection
		// once the stream ends or its drain deadline elapses.
		c.sendClosed.Store(true)
		return nil

	default:
		return fmt.Errorf("openairt: unknown request type %T", req)
	}
}

// activityStart handles client barge-in: cancel the in-flight response,
// surface a synthetic interruption, and clear stale input.
func (c *Conn) activityStart() error {
	if c.tr.cancelPending() {
		if resp := c.tr.clientActivityStart(); resp != nil {
			c.emit(respOrErr{resp: resp})
		}
		if err := c.sendEvent(map[string]any{
			"event_id": generateEventID(),
			"type":     eventTypeResponseCancel,
		}); err != nil {
			return err
		}
	}
	return c.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     eventTypeInputAudioBufferClear,
	})
}

// activityEnd commits buffered input and asks for a response. In server-VAD
// mode the server does both on its own, so this is a no-op there.
func (c *Conn) activityEnd() error {
	if c.cfg.ServerVAD {
		return nil
	}
	if err := c.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     eventTypeInputAudioBufferCommit,
	}); err != nil {
		return err
	}
	return c.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     eventTypeResponseCreate,
	})
}

func contentItem(content *live.Content) map[string]any {
	role := "user"
	if content.Role == live.RoleModel {
		role = "assistant"
	}
	parts := make([]map[string]any, 0, len(content.Parts))
	for _, p := range content.Parts {
		switch v := p.(type) {
		case live.Text:
			kind := "input_text"
			if role == "assistant" {
				kind = "text"
			}
			parts = append(parts, map[string]any{"type": kind, "text": string(v)})
		case *live.Blob:
			parts = append(parts, map[string]any{
				"type":  "input_audio",
				"audio": base64.StdEncoding.EncodeToString(v.Data),
			})
		}
	}
	return map[string]any{
		"type":    "message",
		"role":    role,
		"content": parts,
	}
}

// Receive yields normalized response events until the session ends or the
// connection is closed.
func (c *Conn) Receive() iter.Seq2[*live.Response, error] {
	return func(yield func(*live.Response, error) bool) {
		for {
			select {
			case item, ok := <-c.events:
				if !ok {
					return
				}
				if !yield(item.resp, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			case <-c.closeCh:
				// Flush responses translated before the close; the loop
				// above may have lost the race against closeCh.
				for {
					select {
					case item, ok := <-c.events:
						if !ok {
							return
						}
						if !yield(item.resp, item.err) {
							return
						}
						if item.err != nil {
							return
						}
					default:
						return
					}
				}
			}
		}
	}
}

// SessionID returns the server-assigned session ID, or an empty string if
// session.created has not been received yet.
func (c *Conn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Close closes the session. Idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) sendEvent(event map[string]any) error {
	if c.closed.Load() {
		return live.ErrConnectionClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(event); err != nil {
		if c.closed.Load() {
			return live.ErrConnectionClosed
		}
		return live.Unavailable(fmt.Errorf("openairt: send: %w", err))
	}
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.emit(respOrErr{err: live.Unavailable(fmt.Errorf("openairt: receive: %w", err))})
			return
		}

		event, err := parseServerEvent(message)
		if err != nil {
			slog.Debug("openairt: dropping malformed frame", "error", err)
			continue
		}

		if event.Type == eventTypeSessionCreated && event.Session != nil {
			c.mu.Lock()
			c.sessionID = event.Session.ID
			c.mu.Unlock()
		}

		if resp := c.tr.serverEvent(event); resp != nil {
			c.emit(respOrErr{resp: resp})
		}
	}
}

func (c *Conn) emit(item respOrErr) {
	select {
	case <-c.closeCh:
	case c.events <- item:
	}
}
