// Package runner orchestrates live sessions end to end.
//
// A Runner owns the wiring of one session kind: how to dial the backend,
// which timeouts apply, and where transcripts are recorded. Start creates
// one Session: it builds the request queue, dials the backend connection,
// and runs two independent duties until the session ends:
//
//   - pump: dequeue client requests and forward them to the connection
//   - drain: consume the connection's response stream and forward
//     normalized events to the consumer
//
// Neither duty blocks the other. The consumer observes everything through
// Session.Events: content deltas, turn completion, interruptions, per-event
// rejections, and the terminal error if the session fails.
//
//	r, _ := runner.New(runner.Config{
//	    AppName: "demo",
//	    Dial: func(ctx context.Context) (live.Connection, error) {
//	        return gemini.Dial(ctx, geminiCfg)
//	    },
//	})
//	sess, err := r.Start(ctx, "alice", "")
//	if err != nil {
//	    return err
//	}
//	go produce(sess.Queue())
//	for resp, err := range sess.Events() {
//	    // ...
//	}
package runner
