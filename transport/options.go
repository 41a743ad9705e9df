package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// ContextDialer is an interface for custom network dialing logic.
// It matches the signature of net.Dialer.DialContext.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type dialOptions struct {
	// TLS configuration for tls://, ssl://, mqtts:// and wss://
	TLSConfig *tls.Config

	// Dialer for TCP connections (optional)
	Dialer ContextDialer

	// Bound on a single Write, 0 means no bound
	WriteTimeout time.Duration

	// Extra headers for the WebSocket handshake
	Header http.Header

	// Largest WebSocket message accepted from the server
	ReadLimit int64
}

// DialOption configures Dial.
type DialOption func(*dialOptions)

// WithTLSConfig sets the TLS configuration. Passing a config also enables
// TLS for tcp:// and mqtt:// URLs.
func WithTLSConfig(config *tls.Config) DialOption {
	return func(o *dialOptions) {
		o.TLSConfig = config
	}
}

// WithDialer sets a custom dialer for TCP connections, e.g. to go through a
// proxy or bind a local address.
func WithDialer(dialer ContextDialer) DialOption {
	return func(o *dialOptions) {
		o.Dialer = dialer
	}
}

// WithWriteTimeout bounds every Write. A write that times out fails the
// connection.
func WithWriteTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) {
		o.WriteTimeout = d
	}
}

// WithHeader adds HTTP headers to the WebSocket handshake, e.g. for
// authentication at a reverse proxy.
func WithHeader(header http.Header) DialOption {
	return func(o *dialOptions) {
		o.Header = header
	}
}

// WithReadLimit sets the largest WebSocket message accepted from the
// server. Default is 1 MiB.
func WithReadLimit(n int64) DialOption {
	return func(o *dialOptions) {
		o.ReadLimit = n
	}
}

func defaultDialOptions() *dialOptions {
	return &dialOptions{
		ReadLimit: 1 << 20,
	}
}
