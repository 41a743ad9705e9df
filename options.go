package mqtiny

import (
	"io"
	"log/slog"
	"time"
)

const (
	// ProtocolV311 is MQTT version 3.1.1 (default)
	ProtocolV311 uint8 = 4
	// ProtocolV50 is MQTT version 5.0. Only the packet skeleton is supported:
	// property sections are skipped on receive and sent empty.
	ProtocolV50 uint8 = 5
)

// clientOptions holds configuration for the MQTT client.
type clientOptions struct {
	// Client identifier
	ClientID string

	// Username and password for authentication (optional)
	Username    string
	Password    string
	credentials bool

	// Keep alive interval, 0 disables keep-alive
	KeepAlive time.Duration

	// Clean session flag
	CleanSession bool

	// Protocol Version (4 = v3.1.1, 5 = v5.0)
	ProtocolVersion uint8

	// How long Connect waits for CONNACK
	ConnectTimeout time.Duration

	// Upper bound of the transport wait inside one Poll
	ReadTimeout time.Duration

	// Logger for client events (optional, defaults to discarding logs)
	Logger *slog.Logger

	// Will message (optional)
	will *willMessage

	// Limits and capacities (0 = use defaults)
	MaxTopicLength       int
	SubscriptionCapacity int
	InflightCapacity     int
	RxBufferSize         int
	TxBufferSize         int

	now func() time.Time
}

// Option configures a Client.
type Option func(*clientOptions)

// willMessage represents the Last Will and Testament message.
type willMessage struct {
	Topic    string
	Payload  []byte
	QoS      QoS
	Retained bool
}

// MqttOptions is the read-only view of a client's connection options.
// It cannot change after the client is constructed.
type MqttOptions struct {
	ClientID        string
	KeepAlive       time.Duration
	Username        string
	HasCredentials  bool
	CleanSession    bool
	ProtocolVersion uint8
}

// WithClientID sets the client identifier.
//
// An empty client ID is only accepted together with a clean session; the
// server then assigns an identifier.
func WithClientID(id string) Option {
	return func(o *clientOptions) {
		o.ClientID = id
	}
}

// WithCredentials sets the username and password for authentication.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.Username = username
		o.Password = password
		o.credentials = true
	}
}

// WithKeepAlive sets the MQTT keep alive interval (default: 60s).
//
// A PINGREQ is sent once nothing has been written for half the interval; if
// the PINGRESP does not arrive within the other half, the connection fails
// with ErrTimeout. Zero disables keep-alive. Connect rejects values below one
// second or above MaxKeepAlive.
func WithKeepAlive(duration time.Duration) Option {
	return func(o *clientOptions) {
		o.KeepAlive = duration
	}
}

// WithCleanSession sets the clean session flag (default: true).
//
// When false, in-flight QoS 1 and QoS 2 exchanges survive a reconnect and are
// resumed if the server reports a present session. The client MUST use a
// non-empty client ID.
func WithCleanSession(clean bool) Option {
	return func(o *clientOptions) {
		o.CleanSession = clean
	}
}

// WithProtocolVersion sets the MQTT protocol version to use.
// Use ProtocolV311 (default) or ProtocolV50.
func WithProtocolVersion(version uint8) Option {
	return func(o *clientOptions) {
		o.ProtocolVersion = version
	}
}

// WithConnectTimeout sets how long Connect waits for CONNACK (default: 10s).
func WithConnectTimeout(duration time.Duration) Option {
	return func(o *clientOptions) {
		o.ConnectTimeout = duration
	}
}

// WithReadTimeout sets the longest transport wait performed by Poll
// (default: 1s). Poll waits less when a protocol deadline is closer.
func WithReadTimeout(duration time.Duration) Option {
	return func(o *clientOptions) {
		o.ReadTimeout = duration
	}
}

// WithWill sets the Last Will and Testament (LWT) message.
//
// The server publishes it on behalf of the client if the connection is lost
// without a DISCONNECT (network failure, keep-alive timeout, power loss).
//
// Example (status monitoring):
//
//	client := mqtiny.NewClient(conn,
//	    mqtiny.WithClientID("sensor-1"),
//	    mqtiny.WithWill("devices/sensor-1/status", []byte("offline"), mqtiny.AtLeastOnce, true))
func WithWill(topic string, payload []byte, qos QoS, retained bool) Option {
	return func(o *clientOptions) {
		o.will = &willMessage{
			Topic:    topic,
			Payload:  payload,
			QoS:      qos,
			Retained: retained,
		}
	}
}

// WithLogger sets a custom logger for the client.
//
// If not provided, the client will use a logger that discards all output.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client := mqtiny.NewClient(conn, mqtiny.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.Logger = logger
	}
}

// WithClock sets the time source used for keep-alive and handshake
// deadlines. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		o.now = now
	}
}

// defaultOptions returns the default client options.
func defaultOptions() *clientOptions {
	return &clientOptions{
		KeepAlive:       60 * time.Second,
		CleanSession:    true,
		ProtocolVersion: ProtocolV311,
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     time.Second,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),

		MaxTopicLength:       DefaultMaxTopicLength,
		SubscriptionCapacity: DefaultSubscriptionCapacity,
		InflightCapacity:     DefaultInflightCapacity,
		RxBufferSize:         DefaultRxBufferSize,
		TxBufferSize:         DefaultTxBufferSize,

		now: time.Now,
	}
}
