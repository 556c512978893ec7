package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/haivivi/livepipe/pkg/live"
)

func newTestConn() *Conn {
	return &Conn{
		events:  make(chan respOrErr, 8),
		closeCh: make(chan struct{}),
	}
}

func TestReceiveFlushesBufferedOnClose(t *testing.T) {
	conn := newTestConn()
	for i := 0; i < 4; i++ {
		conn.events <- respOrErr{resp: &live.Response{
			Content: &live.Content{Role: live.RoleModel, Parts: []live.Part{live.Text("d")}},
		}}
	}
	conn.events <- respOrErr{resp: &live.Response{TurnComplete: true}}
	close(conn.closeCh)

	var got []*live.Response
	for resp, err := range conn.Receive() {
		if err != nil {
			t.Fatalf("Receive yielded error: %v", err)
		}
		got = append(got, resp)
	}
	if len(got) != 5 {
		t.Fatalf("got %d responses after close, want 5", len(got))
	}
	if !got[4].TurnComplete {
		t.Errorf("last response = %+v, want turn complete", got[4])
	}
}

func TestCloseRequestKeepsStreamOpen(t *testing.T) {
	conn := newTestConn()
	ctx := context.Background()

	if err := conn.Send(ctx, live.Close{}); err != nil {
		t.Fatalf("Send(Close) = %v", err)
	}

	// The send side is closed, the receive side is not.
	err := conn.Send(ctx, &live.Content{Role: live.RoleUser, Parts: []live.Part{live.Text("hi")}})
	if !errors.Is(err, live.ErrConnectionClosed) {
		t.Errorf("Send after close request = %v, want ErrConnectionClosed", err)
	}

	conn.events <- respOrErr{resp: &live.Response{TurnComplete: true}}
	close(conn.events)

	var got int
	for resp, err := range conn.Receive() {
		if err != nil {
			t.Fatalf("Receive yielded error: %v", err)
		}
		if resp.TurnComplete {
			got++
		}
	}
	if got != 1 {
		t.Errorf("got %d trailing responses, want 1", got)
	}
}
