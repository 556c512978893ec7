package live

import (
	"context"
	"sync"
)

// RequestQueue is an ordered, multi-producer/single-consumer buffer of
// Requests representing inbound client traffic for one session.
//
// Enqueue never blocks: the buffer grows to absorb bursts, so client-side
// event production (typing, speech chunks) never stalls on a slow consumer.
// Slowness shows up as consumer-side lag instead. An optional soft bound
// caps growth under a runaway producer.
//
// The zero value is not usable; create queues with NewRequestQueue.
type RequestQueue struct {
	writeNotify chan struct{}

	mu          sync.Mutex
	buf         []Request
	closeWrite  bool
	maxBuffered int
}

// QueueOption configures a RequestQueue.
type QueueOption func(*RequestQueue)

// WithMaxBuffered sets a soft bound on the number of buffered requests.
// Enqueue fails with ErrQueueFull when the bound is exceeded. Zero or
// negative means unbounded.
func WithMaxBuffered(n int) QueueOption {
	return func(q *RequestQueue) {
		q.maxBuffered = n
	}
}

// NewRequestQueue creates an empty open queue.
func NewRequestQueue(opts ...QueueOption) *RequestQueue {
	q := &RequestQueue{
		writeNotify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends req to the tail of the queue, preserving submission order.
//
// A Close request transitions the queue to closing instead of being
// buffered; buffered requests remain dequeueable. Enqueue returns
// ErrQueueClosed once the queue is closing or closed, and ErrQueueFull when
// the soft bound is exceeded.
func (q *RequestQueue) Enqueue(req Request) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closeWrite {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, ok := req.(Close); ok {
		q.closeWrite = true
	} else {
		if q.maxBuffered > 0 && len(q.buf) >= q.maxBuffered {
			q.mu.Unlock()
			return ErrQueueFull
		}
		q.buf = append(q.buf, req)
	}
	q.mu.Unlock()

	q.notify()
	return nil
}

// SendContent enqueues a Content request.
func (q *RequestQueue) SendContent(role Role, parts ...Part) error {
	return q.Enqueue(&Content{Role: role, Parts: parts})
}

// SendRealtime enqueues a realtime media chunk.
func (q *RequestQueue) SendRealtime(mimeType string, data []byte) error {
	return q.Enqueue(&RealtimeBlob{MIMEType: mimeType, Data: data})
}

// SendActivityStart enqueues an activity start signal.
func (q *RequestQueue) SendActivityStart() error {
	return q.Enqueue(&Activity{Kind: ActivityStart})
}

// SendActivityEnd enqueues an activity end signal.
func (q *RequestQueue) SendActivityEnd() error {
	return q.Enqueue(&Activity{Kind: ActivityEnd})
}

// Dequeue removes and returns the next request in FIFO order. It blocks
// until a request is available, the queue is closed and drained (ErrDone),
// or ctx is cancelled.
//
// The queue has exactly one consumer; Dequeue must not be called
// concurrently from multiple goroutines.
func (q *RequestQueue) Dequeue(ctx context.Context) (Request, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			req := q.buf[0]
			q.buf = q.buf[1:]
			q.mu.Unlock()
			return req, nil
		}
		closed := q.closeWrite
		q.mu.Unlock()

		if closed {
			return nil, ErrDone
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.writeNotify:
		}
	}
}

// Close marks the queue closing. No further enqueues are permitted, but
// already-buffered requests are still delivered via Dequeue before ErrDone.
// Close is idempotent.
func (q *RequestQueue) Close() {
	q.mu.Lock()
	q.closeWrite = true
	q.mu.Unlock()
	q.notify()
}

// Cancel discards all buffered requests and closes the queue immediately.
// A subsequent Dequeue returns ErrDone right away, not the discarded
// requests.
func (q *RequestQueue) Cancel() {
	q.mu.Lock()
	q.closeWrite = true
	q.buf = nil
	q.mu.Unlock()
	q.notify()
}

// Len returns the number of buffered requests.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Closed reports whether the queue no longer accepts enqueues.
func (q *RequestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeWrite
}

func (q *RequestQueue) notify() {
	select {
	case q.writeNotify <- struct{}{}:
	default:
	}
}
