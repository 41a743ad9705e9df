// Package mqtiny provides an MQTT v3.1.1 client for resource-constrained
// devices.
//
// The client owns a fixed set of buffers and tables sized at construction
// (receive and transmit buffers, subscription table, packet-id slots) and
// never grows them: running out of room is always a reported error. It runs
// inside the caller's goroutine and performs I/O only inside its methods,
// over any Transport that provides a bounded-wait read and a write.
//
// # Quick Start
//
//	conn, err := transport.Dial(ctx, "tcp://localhost:1883")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	client := mqtiny.NewClient(conn,
//	    mqtiny.WithClientID("sensor-1"),
//	    mqtiny.WithKeepAlive(30*time.Second))
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	client.Subscribe("sensors/+/temp", mqtiny.AtLeastOnce)
//	for {
//	    msg, err := client.Poll(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if msg != nil {
//	        fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
//	    }
//	}
//
// # Borrowed Messages
//
// Poll returns incoming messages as *Publish values whose Topic and Payload
// point into the client's receive buffer. They are valid only until the next
// Poll. Call Clone to keep a message.
//
// # Connection States
//
// The client moves between Disconnected, Connecting, Connected and
// Disconnecting. Publish, Subscribe and Unsubscribe fail with ErrNotConnected
// outside Connected. Transport failures, malformed or unexpected packets and
// keep-alive timeouts always end in Disconnected; reconnecting is the
// caller's choice (see SetTransport).
//
// # Error Handling
//
// Errors wrap package-level sentinels and are tested with errors.Is:
//
//	if errors.Is(err, mqtiny.ErrCapacityExceeded) { ... }
//	if errors.Is(err, mqtiny.ErrNotAuthorized) { ... }
//
// IsConnectionError reports whether an error ended the connection.
//
// # Transports
//
// The transport package dials tcp://, tls:// (also ssl:// and mqtts://),
// ws:// and wss:// URLs. Any other byte stream works through a small
// adapter implementing Transport.
//
// # Modules
//
// The modular package builds on the client: independent modules register
// topic filters, receive every message and queue publishes in an outbox that
// the runtime drains after each dispatch.
package mqtiny
