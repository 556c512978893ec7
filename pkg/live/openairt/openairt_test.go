package openairt

import (
	"context"
	"errors"
	"testing"

	"github.com/haivivi/livepipe/pkg/live"
)

func newTestConn() *Conn {
	return &Conn{
		cfg:     &Config{},
		events:  make(chan respOrErr, 8),
		closeCh: make(chan struct{}),
	}
}

func TestReceiveFlushesBufferedOnClose(t *testing.T) {
	conn := newTestConn()
	for i := 0; i < 3; i++ {
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
	if len(got) != 4 {
		t.Fatalf("got %d responses after close, want 4", len(got))
	}
	if !got[3].TurnComplete {
		t.Errorf("last response = %+v, want turn complete", got[3])
	}
}

func TestCloseRequestKeepsStreamOpen(t *testing.T) {
	conn := newTestConn()
	ctx := context.Background()

	if err := conn.Send(ctx, live.Close{}); err != nil {
		t.Fatalf("Send(Close) = %v", err)
	}

	// The send side is closed, the receive side is not.
	err := conn.Send(ctx, &live.RealtimeBlob{MIMEType: "audio/pcm", Data: []byte{1}})
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
