package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/livepipe/pkg/live"
	"github.com/haivivi/livepipe/pkg/session"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultDrainTimeout   = 10 * time.Second
)

// State is the lifecycle state of a Session.
type State int32

const (
	// StateInitializing: the backend connection is being established.
	StateInitializing State = iota

	// StateActive: pump and drain are running.
	StateActive

	// StateClosing: the client finished or cancelled; trailing backend
	// events are being drained.
	StateClosing

	// StateClosed: terminal. All resources are released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DialFunc establishes one backend connection.
type DialFunc func(ctx context.Context) (live.Connection, error)

// Config configures a Runner.
type Config struct {
	// AppName scopes recorded sessions. Required when Service is set.
	AppName string

	// Dial establishes the backend connection for each session. Required.
	Dial DialFunc

	// ConnectTimeout bounds Dial. Zero means 15s.
	ConnectTimeout time.Duration

	// DrainTimeout bounds how long a gracefully closing session waits for
	// trailing backend events. Zero means 10s.
	DrainTimeout time.Duration

	// MaxBuffered is the request queue's soft buffer bound. Zero means
	// unbounded.
	MaxBuffered int

	// Service records session transcripts. Nil disables recording.
	Service session.Service

	// Logger for session lifecycle logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Runner creates live sessions against one configured backend.
type Runner struct {
	cfg Config
	log *slog.Logger
}

// New validates cfg and creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Dial == nil {
		return nil, errors.New("runner: Config.Dial is required")
	}
	if cfg.Service != nil && cfg.AppName == "" {
		return nil, errors.New("runner: Config.AppName is required when Service is set")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log}, nil
}

// Start dials the backend and launches one live session. A sessionID of ""
// generates one. The returned Session is Active; the caller feeds requests
// through Queue and consumes Events.
func (r *Runner) Start(ctx context.Context, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()
	conn, err := r.cfg.Dial(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("runner: start session %s: %w", sessionID, err)
	}

	if r.cfg.Service != nil {
		if err := r.ensureRecord(ctx, userID, sessionID); err != nil {
			conn.Close()
			return nil, err
		}
	}

	s := &Session{
		id:           sessionID,
		userID:       userID,
		appName:      r.cfg.AppName,
		queue:        live.NewRequestQueue(live.WithMaxBuffered(r.cfg.MaxBuffered)),
		conn:         conn,
		svc:          r.cfg.Service,
		drainTimeout: r.cfg.DrainTimeout,
		log:          r.log.With("session", sessionID),
		events:       make(chan *live.Response, 16),
		done:         make(chan struct{}),
		cancelCh:     make(chan struct{}),
		pumpDone:     make(chan struct{}),
	}
	s.state.Store(int32(StateActive))
	s.log.Debug("session started", "user", userID)

	go s.pump()
	go s.drain()
	return s, nil
}

func (r *Runner) ensureRecord(ctx context.Context, userID, sessionID string) error {
	_, err := r.cfg.Service.Get(ctx, r.cfg.AppName, userID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		_, err = r.cfg.Service.Create(ctx, r.cfg.AppName, userID, sessionID)
	}
	if err != nil {
		return fmt.Errorf("runner: session record %s: %w", sessionID, err)
	}
	return nil
}

// Session is one running live session. It is safe for concurrent use, with
// two exceptions inherited from its parts: the queue has a single consumer
// (the pump, owned by the session) and Events may be iterated at most once.
type Session struct {
	id           string
	userID       string
	appName      string
	queue        *live.RequestQueue
	conn         live.Connection
	svc          session.Service
	drainTimeout time.Duration
	log          *slog.Logger

	state    atomic.Int32
	events   chan *live.Response
	done     chan struct{}
	cancelCh chan struct{}
	pumpDone chan struct{}

	cancelOnce sync.Once

	mu         sync.Mutex
	err        error
	drainTimer *time.Timer
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the user the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Queue returns the session's request queue. Producers enqueue client
// traffic here; enqueuing live.Close (or calling the queue's Close) ends the
// session gracefully once buffered requests are flushed.
func (s *Session) Queue() *live.RequestQueue { return s.queue }

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Events yields normalized backend events in arrival order until the session
// closes. A session-fatal failure is yielded as the final error. The
// sequence may be iterated at most once; abandoning it early without calling
// Cancel stalls the session.
func (s *Session) Events() iter.Seq2[*live.Response, error] {
	return func(yield func(*live.Response, error) bool) {
		for resp := range s.events {
			if !yield(resp, nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Cancel tears the session down immediately: buffered requests are
// discarded, the backend connection is closed, and the session transitions
// to Closed without waiting for trailing backend events. Idempotent.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		s.state.CompareAndSwap(int32(StateActive), int32(StateClosing))
		close(s.cancelCh)
		s.queue.Cancel()
		s.conn.Close()
		s.log.Debug("session cancelled")
	})
}

// Wait blocks until the session reaches Closed or ctx is cancelled. It
// returns the session's terminal error: nil for a graceful close or Cancel,
// non-nil for backend failures and drain timeouts.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.Err()
	}
}

// Err returns the session's terminal error, nil while running or after a
// clean close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// pump moves client requests from the queue to the backend connection.
func (s *Session) pump() {
	defer close(s.pumpDone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.cancelCh:
			cancel()
		case <-s.done:
		}
	}()

	for {
		req, err := s.queue.Dequeue(ctx)
		if errors.Is(err, live.ErrDone) {
			// Half-close the connection; drain keeps delivering trailing
			// events until the backend ends the stream or the drain
			// deadline force-closes it.
			s.beginClosing()
			if err := s.conn.Send(ctx, live.Close{}); err != nil {
				s.log.Debug("close signal failed", "err", err)
			}
			return
		}
		if err != nil {
			return
		}

		if err := s.conn.Send(ctx, req); err != nil {
			var rej *live.RejectedError
			switch {
			case errors.As(err, &rej):
				s.emit(&live.Response{Rejected: rej})
			case errors.Is(err, live.ErrConnectionClosed), errors.Is(err, context.Canceled):
				return
			default:
				s.fail(fmt.Errorf("runner: send: %w", err))
				return
			}
			continue
		}
		s.recordRequest(req)
	}
}

// drain moves backend events from the connection to the consumer. It owns
// the session teardown: whatever ends the Receive sequence ends the session.
func (s *Session) drain() {
	for resp, err := range s.conn.Receive() {
		if err != nil {
			s.setErr(err)
			break
		}
		s.recordResponse(resp)
		if !s.emit(resp) {
			break
		}
	}
	s.shutdown()
}

// beginClosing transitions Active -> Closing and arms the drain deadline.
// The backend gets drainTimeout to flush trailing events before the
// connection is forced closed.
func (s *Session) beginClosing() {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		return
	}
	s.log.Debug("session closing", "drain_timeout", s.drainTimeout)
	s.mu.Lock()
	s.drainTimer = time.AfterFunc(s.drainTimeout, func() {
		s.setErr(fmt.Errorf("runner: drain timed out after %s: %w", s.drainTimeout, context.DeadlineExceeded))
		s.conn.Close()
	})
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.setErr(err)
	s.state.CompareAndSwap(int32(StateActive), int32(StateClosing))
	s.queue.Cancel()
	s.conn.Close()
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// emit delivers one event to the consumer. It returns false when the
// session was cancelled before the consumer took the event.
func (s *Session) emit(resp *live.Response) bool {
	select {
	case s.events <- resp:
		return true
	case <-s.cancelCh:
		return false
	}
}

// shutdown runs exactly once, from drain, after the event stream ended.
// It waits for pump to exit before closing the events channel: pump may
// still emit a late rejection for an in-flight send.
func (s *Session) shutdown() {
	s.conn.Close()
	s.queue.Cancel()
	<-s.pumpDone

	s.mu.Lock()
	if s.drainTimer != nil {
		s.drainTimer.Stop()
	}
	s.mu.Unlock()

	s.state.Store(int32(StateClosed))
	close(s.events)
	close(s.done)
	s.log.Debug("session closed", "err", s.Err())
}

func (s *Session) recordRequest(req live.Request) {
	if s.svc == nil {
		return
	}
	content, ok := req.(*live.Content)
	if !ok || content.Text() == "" {
		return
	}
	ev := session.NewEvent(string(content.Role), content.Text())
	if err := s.svc.AppendEvent(context.Background(), s.appName, s.userID, s.id, ev); err != nil {
		s.log.Warn("record request failed", "err", err)
	}
}

func (s *Session) recordResponse(resp *live.Response) {
	if s.svc == nil || resp.Rejected != nil {
		return
	}
	var text string
	if resp.Content != nil {
		text = resp.Content.Text()
	}
	if text == "" && !resp.TurnComplete && !resp.Interrupted {
		return
	}
	ev := session.NewEvent(string(live.RoleModel), text)
	ev.TurnComplete = resp.TurnComplete
	ev.Interrupted = resp.Interrupted
	if err := s.svc.AppendEvent(context.Background(), s.appName, s.userID, s.id, ev); err != nil {
		s.log.Warn("record response failed", "err", err)
	}
}
