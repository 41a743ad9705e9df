package mqtiny

import "time"

// MQTT specification limits and construction-time capacity defaults.
const (
	// DefaultMaxTopicLength is the maximum length of an MQTT topic (2 bytes for length prefix)
	DefaultMaxTopicLength = 65535

	// DefaultSubscriptionCapacity is the default size of the subscription table.
	DefaultSubscriptionCapacity = 8

	// DefaultInflightCapacity is the default number of packet-id slots.
	DefaultInflightCapacity = 8

	// DefaultRxBufferSize is the default size of the single receive buffer.
	DefaultRxBufferSize = 1024

	// DefaultTxBufferSize is the default size of the transmit buffer.
	DefaultTxBufferSize = 1024

	// MaxKeepAlive is the longest keep-alive the CONNECT field can carry.
	MaxKeepAlive = 65535 * time.Second
)

// WithMaxTopicLength sets the maximum allowed topic length for publishing
// and subscribing. Default is 65535 (MQTT spec maximum).
func WithMaxTopicLength(max int) Option {
	return func(o *clientOptions) {
		o.MaxTopicLength = max
	}
}

// WithSubscriptionCapacity sets how many topic filters the subscription
// table holds. Adding more returns ErrCapacityExceeded.
func WithSubscriptionCapacity(n int) Option {
	return func(o *clientOptions) {
		o.SubscriptionCapacity = n
	}
}

// WithInflightCapacity sets the number of packet-id slots shared by QoS 1/2
// publishes, SUBSCRIBE and UNSUBSCRIBE. It also bounds the number of inbound
// QoS 2 messages awaiting PUBREL.
func WithInflightCapacity(n int) Option {
	return func(o *clientOptions) {
		o.InflightCapacity = n
	}
}

// WithRxBufferSize sets the size of the receive buffer. An incoming packet
// larger than this is a protocol error.
func WithRxBufferSize(n int) Option {
	return func(o *clientOptions) {
		o.RxBufferSize = n
	}
}

// WithTxBufferSize sets the size of the transmit buffer. Publishing a packet
// larger than this returns ErrBufferOverflow.
func WithTxBufferSize(n int) Option {
	return func(o *clientOptions) {
		o.TxBufferSize = n
	}
}
