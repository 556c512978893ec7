// Package openairt implements the live.Connection contract on top of the
// OpenAI Realtime API over WebSocket.
//
// The adapter speaks the Realtime event protocol directly: Content becomes a
// conversation item plus a response request, RealtimeBlob feeds the input
// audio buffer, and Activity signals drive manual turn control
// (commit/clear) when server-side voice activity detection is disabled.
// Server events are translated into normalized Response events with the
// same turn-completion and interruption semantics as the other adapters.
package openairt
