package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// BadgerService is a Service backed by BadgerDB v4. Records are stored
// under hierarchical keys "session:<app>:<user>:<id>" and encoded with
// msgpack.
type BadgerService struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB-backed service.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode. Useful for tests that
	// want the real engine without disk state.
	InMemory bool

	// Logger sets the badger logger. Nil keeps badger's default.
	Logger badger.Logger
}

// NewBadgerService opens (or creates) a BadgerDB-backed session store.
func NewBadgerService(opts BadgerOptions) (*BadgerService, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("session: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("session: open badger: %w", err)
	}
	return &BadgerService{db: db}, nil
}

var _ Service = (*BadgerService)(nil)

func sessionKey(appName, userID, sessionID string) []byte {
	return []byte("session:" + appName + ":" + userID + ":" + sessionID)
}

func sessionPrefix(appName, userID string) []byte {
	return []byte("session:" + appName + ":" + userID + ":")
}

func (s *BadgerService) Create(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	if strings.ContainsRune(appName+userID+sessionID, ':') {
		return nil, fmt.Errorf("session: identifiers must not contain ':'")
	}
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
	if err := s.put(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *BadgerService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	var sess *Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(appName, userID, sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sess = new(Session)
			return msgpack.Unmarshal(val, sess)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	return sess, nil
}

func (s *BadgerService) AppendEvent(ctx context.Context, appName, userID, sessionID string, event *Event) error {
	key := sessionKey(appName, userID, sessionID)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var sess Session
		if err := item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &sess)
		}); err != nil {
			return err
		}
		sess.Events = append(sess.Events, event)
		sess.UpdatedAt = time.Now().UTC()
		data, err := msgpack.Marshal(&sess)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: append event: %w", err)
	}
	return nil
}

func (s *BadgerService) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	prefix := sessionPrefix(appName, userID)
	var out []*Session
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sess Session
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &sess)
			}); err != nil {
				return err
			}
			out = append(out, &sess)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *BadgerService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(appName, userID, sessionID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (s *BadgerService) Close() error {
	return s.db.Close()
}

func (s *BadgerService) put(sess *Session) error {
	data, err := msgpack.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(sess.AppName, sess.UserID, sess.ID), data)
	})
}
