package transport

import (
	"errors"
	"net"
	"os"
	"time"
)

// minWait is the shortest read deadline. A deadline that already passed
// fails the read without looking at buffered data.
const minWait = time.Millisecond

// Conn adapts a net.Conn to mqtiny.Transport. The bounded wait of Read is
// implemented with a read deadline; an expired deadline is reported as
// (0, nil).
type Conn struct {
	conn         net.Conn
	writeTimeout time.Duration
}

// NewConn wraps an established connection, e.g. one accepted from a
// listener or returned by a custom dialer.
func NewConn(conn net.Conn) *Conn {
	return newConn(conn, 0)
}

func newConn(conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{conn: conn, writeTimeout: writeTimeout}
}

// Read implements mqtiny.Transport.
func (c *Conn) Read(p []byte, timeout time.Duration) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(max(timeout, minWait))); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	if err != nil && isTimeout(err) {
		return n, nil
	}
	return n, err
}

// Write implements mqtiny.Transport.
func (c *Conn) Write(p []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(p)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the address of the server.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
