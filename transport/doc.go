// Package transport provides mqtiny.Transport implementations over real
// networks: plain TCP, TLS, and MQTT over WebSocket.
//
// Dial picks the implementation from the server URL:
//
//   - tcp:// or mqtt:// - unencrypted TCP (default port 1883)
//   - tls://, ssl:// or mqtts:// - TLS over TCP (default port 8883)
//   - ws:// or wss:// - WebSocket with the "mqtt" subprotocol
//
// Example:
//
//	conn, err := transport.Dial(ctx, "tcp://localhost:1883")
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//	client := mqtiny.NewClient(conn, mqtiny.WithClientID("sensor-1"))
package transport
