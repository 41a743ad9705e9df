package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Subprotocol is the WebSocket subprotocol for MQTT.
const Subprotocol = "mqtt"

// WebSocket carries MQTT over binary WebSocket messages.
//
// Message boundaries are ignored: the messages form one byte stream. A
// background goroutine reads from the socket, since an expired read
// deadline closes a WebSocket connection; Read waits for its data with a
// timer instead.
type WebSocket struct {
	ws           *websocket.Conn
	conn         net.Conn
	writeTimeout time.Duration

	chunks  chan []byte
	pending []byte

	done   chan struct{} // closed when the read loop stops
	err    error         // read loop error, valid after done is closed
	closed chan struct{}

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// DialWebSocket connects to a ws:// or wss:// URL with the "mqtt" subprotocol.
func DialWebSocket(ctx context.Context, url string, opts ...DialOption) (*WebSocket, error) {
	o := defaultDialOptions()
	for _, opt := range opts {
		opt(o)
	}
	return dialWebSocket(ctx, url, o)
}

func dialWebSocket(ctx context.Context, url string, o *dialOptions) (*WebSocket, error) {
	dialOpts := &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   o.Header,
	}
	if o.TLSConfig != nil {
		dialOpts.HTTPClient = &http.Client{
			Transport: &http.Transport{TLSClientConfig: o.TLSConfig},
		}
	}

	c, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if c.Subprotocol() != Subprotocol {
		c.Close(websocket.StatusProtocolError, "mqtt subprotocol required")
		return nil, fmt.Errorf("server did not accept the %q subprotocol", Subprotocol)
	}
	c.SetReadLimit(o.ReadLimit)

	loopCtx, cancel := context.WithCancel(context.Background())
	w := &WebSocket{
		ws:           c,
		conn:         websocket.NetConn(loopCtx, c, websocket.MessageBinary),
		writeTimeout: o.WriteTimeout,
		chunks:       make(chan []byte, 4),
		done:         make(chan struct{}),
		closed:       make(chan struct{}),
		cancel:       cancel,
	}
	go w.readLoop()
	return w, nil
}

func (w *WebSocket) readLoop() {
	defer close(w.done)
	buf := make([]byte, 4096)
	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case w.chunks <- chunk:
			case <-w.closed:
				w.err = net.ErrClosed
				return
			}
		}
		if err != nil {
			w.err = err
			return
		}
	}
}

// Read implements mqtiny.Transport.
func (w *WebSocket) Read(p []byte, timeout time.Duration) (int, error) {
	if len(w.pending) > 0 {
		return w.take(p, w.pending), nil
	}

	select {
	case chunk := <-w.chunks:
		return w.take(p, chunk), nil
	default:
	}

	timer := time.NewTimer(max(timeout, minWait))
	defer timer.Stop()

	select {
	case chunk := <-w.chunks:
		return w.take(p, chunk), nil
	case <-w.done:
		// Data read before the error comes first.
		select {
		case chunk := <-w.chunks:
			return w.take(p, chunk), nil
		default:
			return 0, w.err
		}
	case <-timer.C:
		return 0, nil
	}
}

// take copies as much of chunk into p as fits and keeps the rest.
func (w *WebSocket) take(p, chunk []byte) int {
	n := copy(p, chunk)
	w.pending = chunk[n:]
	return n
}

// Write implements mqtiny.Transport. Every call is sent as one binary message.
func (w *WebSocket) Write(p []byte) error {
	if w.writeTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := w.conn.Write(p)
	return err
}

// Close sends a normal closure and releases the read goroutine.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.ws.Close(websocket.StatusNormalClosure, "")
		w.cancel()
	})
	return err
}
