package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/livepipe/pkg/live"
	"github.com/haivivi/livepipe/pkg/runner"
	"github.com/haivivi/livepipe/pkg/session"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8089".
	Addr string

	// Runner creates the backend session for each connection. Required.
	Runner *runner.Runner

	// AppName scopes the session listing endpoint.
	AppName string

	// Service enables GET /v1/sessions. Nil disables the endpoint.
	Service session.Service

	// Logger for connection lifecycle logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Server bridges WebSocket clients to live sessions.
type Server struct {
	cfg      Config
	log      *slog.Logger
	registry *runner.Registry
	upgrader websocket.Upgrader
	server   *http.Server
}

// New validates cfg and creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("web: Config.Runner is required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("web: Config.Addr is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: runner.NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler returns the server's HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/live", s.handleLive)
	if s.cfg.Service != nil {
		mux.HandleFunc("GET /v1/sessions", s.handleSessions)
	}
	return mux
}

// ListenAndServe blocks serving connections until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("live gateway starting", "addr", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels all live sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.CancelAll()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// handleLive upgrades the connection and runs one live session: a reader
// goroutine feeds client frames into the session queue, the handler
// goroutine streams session events back. gorilla/websocket permits one
// writer; all writes happen here.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = "anonymous"
	}
	sessionID := r.URL.Query().Get("session")

	sess, err := s.cfg.Runner.Start(context.Background(), userID, sessionID)
	if err != nil {
		s.log.Error("session start failed", "user", userID, "err", err)
		http.Error(w, "session start failed", http.StatusBadGateway)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sess.Cancel()
		return
	}

	s.registry.Add(sess)
	log := s.log.With("session", sess.ID(), "user", userID)
	log.Info("live connection opened", "remote", r.RemoteAddr)

	defer func() {
		s.registry.Remove(sess.ID())
		sess.Cancel()
		ws.Close()
		log.Info("live connection closed")
	}()

	go s.readFrames(ws, sess, log)

	for resp, err := range sess.Events() {
		if err != nil {
			ws.WriteJSON(ServerFrame{Type: FrameError, Code: "session_failed", Message: err.Error()})
			return
		}
		for _, frame := range serverFrames(resp) {
			if err := ws.WriteJSON(frame); err != nil {
				log.Debug("client write failed", "err", err)
				return
			}
		}
	}
	ws.WriteJSON(ServerFrame{Type: FrameClosed})
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// readFrames feeds client frames into the session queue until the socket
// ends or the queue closes. A socket failure closes the queue gracefully;
// buffered requests still flush.
func (s *Server) readFrames(ws *websocket.Conn, sess *runner.Session, log *slog.Logger) {
	defer sess.Queue().Close()
	for {
		var frame ClientFrame
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}
		req, err := frame.Request()
		if err != nil {
			log.Warn("bad client frame", "err", err)
			continue
		}
		if err := sess.Queue().Enqueue(req); err != nil {
			if errors.Is(err, live.ErrQueueClosed) || errors.Is(err, live.ErrDone) {
				return
			}
			log.Warn("enqueue failed", "err", err)
		}
	}
}

type sessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Events    int       `json:"events"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return
	}

	sessions, err := s.cfg.Service.List(r.Context(), s.cfg.AppName, userID)
	if err != nil {
		s.log.Error("list sessions failed", "user", userID, "err", err)
		http.Error(w, "list sessions failed", http.StatusInternalServerError)
		return
	}

	out := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionSummary{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Events:    len(sess.Events),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Error("encode sessions failed", "err", err)
	}
}
