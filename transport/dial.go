package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/gonzalop/mqtiny"
)

// Stream is a Transport that can be closed.
type Stream interface {
	mqtiny.Transport
	Close() error
}

// Dial connects to server and returns a transport for it. See the package
// documentation for the supported URL schemes.
func Dial(ctx context.Context, server string, opts ...DialOption) (Stream, error) {
	o := defaultDialOptions()
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "ws" || u.Scheme == "wss" {
		ws, err := dialWebSocket(ctx, u.String(), o)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}

	addr, useTLS, err := tcpAddress(u, o.TLSConfig != nil)
	if err != nil {
		return nil, err
	}

	conn, err := dialTCP(ctx, addr, o)
	if err != nil {
		return nil, err
	}
	if useTLS {
		tlsConfig := o.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		if tlsConfig.ServerName == "" && !tlsConfig.InsecureSkipVerify {
			tlsConfig = tlsConfig.Clone()
			tlsConfig.ServerName = u.Hostname()
		}
		tc := tls.Client(conn, tlsConfig)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		conn = tc
	}

	return newConn(conn, o.WriteTimeout), nil
}

func dialTCP(ctx context.Context, addr string, o *dialOptions) (net.Conn, error) {
	var d ContextDialer = &net.Dialer{}
	if o.Dialer != nil {
		d = o.Dialer
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return conn, nil
}

// tcpAddress returns host:port for a TCP-based URL, filling in the default
// MQTT port, and whether the scheme asks for TLS.
func tcpAddress(u *url.URL, forceTLS bool) (string, bool, error) {
	useTLS := forceTLS
	port := "1883"
	switch u.Scheme {
	case "tls", "ssl", "mqtts":
		useTLS = true
		port = "8883"
	case "tcp", "mqtt", "":
	default:
		return "", false, fmt.Errorf("unsupported scheme: %s (supported: tcp, mqtt, tls, ssl, mqtts, ws, wss)", u.Scheme)
	}

	if u.Host == "" {
		return "", false, fmt.Errorf("missing host in server URL %q", u.String())
	}
	if u.Port() == "" {
		return net.JoinHostPort(u.Hostname(), port), useTLS, nil
	}
	return u.Host, useTLS, nil
}
