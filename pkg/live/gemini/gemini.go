package gemini

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/haivivi/livepipe/pkg/live"
)

// DefaultModel is the Live-capable model used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash-live-001"

// Config configures a Live connection.
type Config struct {
	// Model is the Live-capable model to dial. Default: DefaultModel.
	Model string

	// APIKey authenticates against the Gemini API.
	APIKey string

	// ResponseModalities selects the output channels to request, "TEXT"
	// and/or "AUDIO". Default: TEXT only.
	ResponseModalities []string

	// SystemInstruction is an optional system prompt for the session.
	SystemInstruction string

	// ServerTurnDetection keeps the backend's automatic voice activity
	// detection enabled. When false, activity bracketing is the client's
	// job via Activity requests.
	ServerTurnDetection bool
}

type respOrErr struct {
	resp *live.Response
	err  error
}

// Conn is a live.Connection backed by one Gemini Live session.
type Conn struct {
	session *genai.Session
	tr      translator

	events     chan respOrErr
	closeCh    chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
	sendClosed atomic.Bool
	sendMu     sync.Mutex
}

var _ live.Connection = (*Conn)(nil)

// Dial opens a Live session. The returned connection owns the underlying
// session handle exclusively.
func Dial(ctx context.Context, cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	session, err := client.Live.Connect(ctx, model, liveConnectConfig(cfg))
	if err != nil {
		return nil, live.Unavailable(fmt.Errorf("gemini: connect %s: %w", model, err))
	}

	conn := &Conn{
		session: session,
		events:  make(chan respOrErr, 64),
		closeCh: make(chan struct{}),
	}
	go conn.recvLoop()

	slog.Debug("gemini: live session connected", "model", model)
	return conn, nil
}

func liveConnectConfig(cfg *Config) *genai.LiveConnectConfig {
	out := &genai.LiveConnectConfig{}

	modalities := cfg.ResponseModalities
	if len(modalities) == 0 {
		modalities = []string{"TEXT"}
	}
	for _, m := range modalities {
		out.ResponseModalities = append(out.ResponseModalities, genai.Modality(strings.ToUpper(m)))
	}

	if cfg.SystemInstruction != "" {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}

	if !cfg.ServerTurnDetection {
		out.RealtimeInputConfig = &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{
				Disabled: true,
			},
		}
	}

	return out
}

// Send forwards one request to the backend.
//
// An Activity start while a model turn is still in flight is treated as
// barge-in: a synthetic interruption event is emitted on the receive stream
// and the remainder of the abandoned turn is dropped, before the activity
// signal is forwarded.
func (c *Conn) Send(ctx context.Context, req live.Request) error {
	if c.closed.Load() || c.sendClosed.Load() {
		return live.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	switch r := req.(type) {
	case *live.Content:
		input := genai.LiveClientContentInput{
			Turns:        []*genai.Content{toGenaiContent(r)},
			TurnComplete: genai.Ptr(true),
		}
		return c.wrapSendErr(c.session.SendClientContent(input))

	case *live.RealtimeBlob:
		input := genai.LiveRealtimeInput{
			Media: &genai.Blob{MIMEType: r.MIMEType, Data: r.Data},
		}
		return c.wrapSendErr(c.session.SendRealtimeInput(input))

	case *live.Activity:
		if r.Kind == live.ActivityStart {
			if resp := c.tr.clientActivityStart(); resp != nil {
				c.emit(respOrErr{resp: resp})
			}
			return c.wrapSendErr(c.session.SendRealtimeInput(genai.LiveRealtimeInput{
				ActivityStart: &genai.ActivityStart{},
			}))
		}
		return c.wrapSendErr(c.session.SendRealtimeInput(genai.LiveRealtimeInput{
			ActivityEnd: &genai.ActivityEnd{},
		}))

	case live.Close:
		// Half-close: no more client input. The session stays open so
		// trailing model output can drain; the owner closes the connection
		// once the stream ends or its drain deadline elapses.
		c.sendClosed.Store(true)
		return nil

	default:
		return fmt.Errorf("gemini: unknown request type %T", req)
	}
}

func (c *Conn) wrapSendErr(err error) error {
	if err == nil {
		return nil
	}
	if c.closed.Load() {
		return live.ErrConnectionClosed
	}
	return live.Unavailable(fmt.Errorf("gemini: send: %w", err))
}

// Receive yields normalized response events in backend arrival order until
// the session ends or the connection is closed.
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

// Close releases the backend session. Idempotent; a pending Receive
// iteration terminates at the next opportunity.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		err = c.session.Close()
	})
	return err
}

func (c *Conn) recvLoop() {
	defer close(c.events)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.emit(respOrErr{err: live.Unavailable(fmt.Errorf("gemini: receive: %w", err))})
			return
		}

		if msg.GoAway != nil {
			slog.Debug("gemini: server go-away")
			return
		}

		for _, resp := range c.tr.serverMessage(msg) {
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
