// Package live defines the building blocks of a live duplex session with a
// generative-model backend: the request event model, the ordered request
// queue fed by the client side, and the Connection contract implemented by
// backend adapters.
//
// # Request Model
//
// Request is a closed union of the four things a client can send:
//
//   - *Content: a unit of conversational content (text or blob parts)
//   - *RealtimeBlob: a raw realtime media chunk (audio/video)
//   - *Activity: a control signal bracketing a realtime input turn
//   - Close: a sentinel marking the end of client input
//
// # Request Queue
//
// RequestQueue buffers client requests in submission order. Producers never
// block; the single consumer pulls with Dequeue:
//
//	q := live.NewRequestQueue()
//	go func() {
//	    q.SendContent(live.RoleUser, live.Text("hello"))
//	    q.Close()
//	}()
//	for {
//	    req, err := q.Dequeue(ctx)
//	    if errors.Is(err, live.ErrDone) {
//	        break
//	    }
//	    // forward req to the backend
//	}
//
// # Connection
//
// Connection is the duplex session contract. Send forwards one Request to
// the backend; Receive yields normalized Response events until the backend
// ends the session or the connection is closed:
//
//	for resp, err := range conn.Receive() {
//	    if err != nil {
//	        return err
//	    }
//	    if resp.TurnComplete {
//	        // model finished its turn
//	    }
//	}
//
// Backend adapters live in subpackages (gemini, openairt).
package live
