// Package web exposes live sessions over WebSocket.
//
// A client connects to /v1/live, sends JSON client frames (content, blob,
// activity, close) and receives JSON server frames (delta, turn_complete,
// interrupted, error, closed). Each connection gets its own runner session;
// the socket closing tears the session down.
package web
