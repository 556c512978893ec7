package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFOThenDone(t *testing.T) {
	q := NewRequestQueue()

	want := []string{"one", "two", "three"}
	for _, s := range want {
		if err := q.SendContent(RoleUser, Text(s)); err != nil {
			t.Fatalf("SendContent(%q) = %v", s, err)
		}
	}
	q.Close()

	ctx := context.Background()
	for i, s := range want {
		req, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue #%d = %v", i, err)
		}
		c, ok := req.(*Content)
		if !ok {
			t.Fatalf("Dequeue #%d type = %T, want *Content", i, req)
		}
		if got := c.Text(); got != s {
			t.Errorf("Dequeue #%d text = %q, want %q", i, got, s)
		}
	}

	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrDone) {
		t.Errorf("Dequeue after drain = %v, want ErrDone", err)
	}
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	q := NewRequestQueue()
	if err := q.SendContent(RoleUser, Text("kept")); err != nil {
		t.Fatalf("SendContent = %v", err)
	}
	if err := q.Enqueue(Close{}); err != nil {
		t.Fatalf("Enqueue(Close) = %v", err)
	}

	if err := q.SendContent(RoleUser, Text("late")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("SendContent after close = %v, want ErrQueueClosed", err)
	}
	if err := q.SendRealtime("audio/pcm", []byte{1}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("SendRealtime after close = %v, want ErrQueueClosed", err)
	}

	// The buffered request is still delivered before end of stream.
	req, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue = %v", err)
	}
	if got := req.(*Content).Text(); got != "kept" {
		t.Errorf("Dequeue text = %q, want %q", got, "kept")
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrDone) {
		t.Errorf("final Dequeue = %v, want ErrDone", err)
	}
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := NewRequestQueue()
	q.Close()
	q.Close()
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrDone) {
		t.Errorf("Dequeue = %v, want ErrDone", err)
	}
}

func TestQueueCancelDiscardsBuffered(t *testing.T) {
	q := NewRequestQueue()
	for i := 0; i < 5; i++ {
		if err := q.SendContent(RoleUser, Text(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("SendContent = %v", err)
		}
	}
	q.Cancel()

	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrDone) {
		t.Errorf("Dequeue after cancel = %v, want ErrDone", err)
	}
	if err := q.SendActivityStart(); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("enqueue after cancel = %v, want ErrQueueClosed", err)
	}
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewRequestQueue()

	done := make(chan Request, 1)
	go func() {
		req, err := q.Dequeue(context.Background())
		if err != nil {
			done <- nil
			return
		}
		done <- req
	}()

	select {
	case <-done:
		t.Fatal("Dequeue returned before any enqueue")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.SendActivityEnd(); err != nil {
		t.Fatalf("SendActivityEnd = %v", err)
	}

	select {
	case req := <-done:
		a, ok := req.(*Activity)
		if !ok || a.Kind != ActivityEnd {
			t.Errorf("Dequeue = %#v, want activity end", req)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock after enqueue")
	}
}

func TestQueueDequeueCancelledContext(t *testing.T) {
	q := NewRequestQueue()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Dequeue = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on context cancellation")
	}
}

func TestQueueConcurrentProducersNoLoss(t *testing.T) {
	q := NewRequestQueue()

	const perProducer = 200
	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.SendContent(RoleUser, Text(fmt.Sprintf("p%d-%d", p, i))); err != nil {
					t.Errorf("producer %d enqueue %d = %v", p, i, err)
					return
				}
			}
		}(p)
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	perSeen := map[int]int{}
	ctx := context.Background()
	for {
		req, err := q.Dequeue(ctx)
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			t.Fatalf("Dequeue = %v", err)
		}
		var p, i int
		if _, err := fmt.Sscanf(req.(*Content).Text(), "p%d-%d", &p, &i); err != nil {
			t.Fatalf("unexpected payload %q", req.(*Content).Text())
		}
		// Per-producer order must hold even when producers interleave.
		if i != perSeen[p] {
			t.Fatalf("producer %d out of order: got %d, want %d", p, i, perSeen[p])
		}
		perSeen[p]++
	}

	for p := 0; p < 2; p++ {
		if perSeen[p] != perProducer {
			t.Errorf("producer %d delivered %d, want %d", p, perSeen[p], perProducer)
		}
	}
}

func TestQueueMaxBuffered(t *testing.T) {
	q := NewRequestQueue(WithMaxBuffered(2))
	if err := q.SendContent(RoleUser, Text("a")); err != nil {
		t.Fatalf("first enqueue = %v", err)
	}
	if err := q.SendContent(RoleUser, Text("b")); err != nil {
		t.Fatalf("second enqueue = %v", err)
	}
	if err := q.SendContent(RoleUser, Text("c")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third enqueue = %v, want ErrQueueFull", err)
	}

	// Draining one slot makes room again.
	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatalf("Dequeue = %v", err)
	}
	if err := q.SendContent(RoleUser, Text("c")); err != nil {
		t.Errorf("enqueue after drain = %v", err)
	}
}

func TestEnqueueInvalidRequests(t *testing.T) {
	q := NewRequestQueue()
	if err := q.Enqueue(nil); err == nil {
		t.Error("Enqueue(nil) succeeded, want error")
	}
	if err := q.Enqueue(&Content{Role: RoleUser}); err == nil {
		t.Error("Enqueue(empty content) succeeded, want error")
	}
	if err := q.Enqueue(&RealtimeBlob{MIMEType: "audio/pcm"}); err == nil {
		t.Error("Enqueue(empty blob) succeeded, want error")
	}
}
