package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func testService(t *testing.T, svc Service) {
	t.Helper()
	ctx := context.Background()

	sess, err := svc.Create(ctx, "app", "alice", "")
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create did not generate a session ID")
	}

	if _, err := svc.Get(ctx, "app", "alice", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}

	if err := svc.AppendEvent(ctx, "app", "alice", sess.ID, NewEvent("user", "hello")); err != nil {
		t.Fatalf("AppendEvent = %v", err)
	}
	if err := svc.AppendEvent(ctx, "app", "alice", sess.ID, NewEvent("model", "hi there")); err != nil {
		t.Fatalf("AppendEvent = %v", err)
	}

	got, err := svc.Get(ctx, "app", "alice", sess.ID)
	if err != nil {
		t.Fatalf("Get = %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(got.Events))
	}
	if got.Events[0].Author != "user" || got.Events[0].Text != "hello" {
		t.Errorf("Events[0] = %+v", got.Events[0])
	}
	if got.Events[1].Author != "model" || got.Events[1].Text != "hi there" {
		t.Errorf("Events[1] = %+v", got.Events[1])
	}

	sessions, err := svc.List(ctx, "app", "alice")
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != sess.ID {
		t.Errorf("List = %+v, want one session %q", sessions, sess.ID)
	}

	if others, err := svc.List(ctx, "app", "bob"); err != nil || len(others) != 0 {
		t.Errorf("List(other user) = %v, %v, want empty", others, err)
	}

	// List orders by recency: appending to an old session moves it to the
	// front.
	older, err := svc.Create(ctx, "app", "alice", "older")
	if err != nil {
		t.Fatalf("Create(older) = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.Create(ctx, "app", "alice", "newer")
	if err != nil {
		t.Fatalf("Create(newer) = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := svc.AppendEvent(ctx, "app", "alice", older.ID, NewEvent("user", "bump")); err != nil {
		t.Fatalf("AppendEvent(older) = %v", err)
	}

	sessions, err = svc.List(ctx, "app", "alice")
	if err != nil {
		t.Fatalf("List = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(sessions))
	}
	if sessions[0].ID != older.ID || sessions[1].ID != newer.ID || sessions[2].ID != sess.ID {
		t.Errorf("List order = [%s %s %s], want [%s %s %s]",
			sessions[0].ID, sessions[1].ID, sessions[2].ID,
			older.ID, newer.ID, sess.ID)
	}
	for _, id := range []string{older.ID, newer.ID} {
		if err := svc.Delete(ctx, "app", "alice", id); err != nil {
			t.Fatalf("Delete(%s) = %v", id, err)
		}
	}

	if err := svc.Delete(ctx, "app", "alice", sess.ID); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	if _, err := svc.Get(ctx, "app", "alice", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "app", "alice", sess.ID); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestMemoryService(t *testing.T) {
	svc := NewMemoryService()
	defer svc.Close()
	testService(t, svc)
}

func TestBadgerServiceInMemory(t *testing.T) {
	svc, err := NewBadgerService(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerService = %v", err)
	}
	defer svc.Close()
	testService(t, svc)
}

func TestMemoryServiceIsolation(t *testing.T) {
	svc := NewMemoryService()
	defer svc.Close()
	ctx := context.Background()

	sess, err := svc.Create(ctx, "app", "alice", "s1")
	if err != nil {
		t.Fatalf("Create = %v", err)
	}

	// Mutating a returned copy must not leak into the store.
	sess.State["color"] = "red"
	sess.Events = append(sess.Events, NewEvent("user", "ghost"))

	got, err := svc.Get(ctx, "app", "alice", "s1")
	if err != nil {
		t.Fatalf("Get = %v", err)
	}
	if len(got.Events) != 0 || len(got.State) != 0 {
		t.Errorf("stored session mutated through returned copy: %+v", got)
	}
}

func TestEventCodec(t *testing.T) {
	in := NewEvent("model", "chunk")
	in.TurnComplete = true

	data, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal = %v", err)
	}
	var out Event
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal = %v", err)
	}
	if out.ID != in.ID || out.Author != "model" || out.Text != "chunk" || !out.TurnComplete {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
