package mqtiny

import "time"

// Transport is the reliable, ordered byte stream the client runs on.
// The client never reorders or resends at the transport level.
//
// Implementations for TCP, TLS and WebSocket live in the transport package.
type Transport interface {
	// Read waits at most timeout for incoming bytes and copies them into p.
	// It returns 0 and a nil error when the wait elapsed without data.
	// Any error is treated as fatal to the current connection.
	Read(p []byte, timeout time.Duration) (int, error)

	// Write sends all of p or returns an error.
	Write(p []byte) error
}
