package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryService is an in-memory Service. Safe for concurrent use; contents
// are lost when the process exits.
type MemoryService struct {
	mu       sync.RWMutex
	sessions map[memKey]*Session
}

type memKey struct {
	app, user, id string
}

// NewMemoryService creates an empty in-memory service.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		sessions: make(map[memKey]*Session),
	}
}

var _ Service = (*MemoryService)(nil)

func (s *MemoryService) Create(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        sessionID,
		AppName:   appName,
		UserID:    userID,
		State:     make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[memKey{appName, userID, sessionID}] = sess
	s.mu.Unlock()
	return cloneSession(sess), nil
}

func (s *MemoryService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[memKey{appName, userID, sessionID}]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *MemoryService) AppendEvent(ctx context.Context, appName, userID, sessionID string, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[memKey{appName, userID, sessionID}]
	if !ok {
		return ErrNotFound
	}
	sess.Events = append(sess.Events, event)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryService) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	s.mu.RLock()
	var out []*Session
	for key, sess := range s.sessions {
		if key.app == appName && key.user == userID {
			out = append(out, cloneSession(sess))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, memKey{appName, userID, sessionID})
	s.mu.Unlock()
	return nil
}

func (s *MemoryService) Close() error {
	return nil
}

func cloneSession(sess *Session) *Session {
	out := *sess
	out.Events = append([]*Event(nil), sess.Events...)
	out.State = make(map[string]string, len(sess.State))
	for k, v := range sess.State {
		out.State[k] = v
	}
	return &out
}
