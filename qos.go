package mqtiny

// QoS represents the MQTT Quality of Service level.
type QoS uint8

// MQTT Quality of Service levels.
const (
	// AtMostOnce (QoS 0) - Fire and forget delivery.
	// No acknowledgment is sent by the receiver, and the message is not retried.
	AtMostOnce QoS = 0

	// AtLeastOnce (QoS 1) - Acknowledged delivery.
	// The receiver sends a PUBACK. Duplicate messages may occur.
	AtLeastOnce QoS = 1

	// ExactlyOnce (QoS 2) - Assured delivery using the four-step handshake
	// (PUBLISH, PUBREC, PUBREL, PUBCOMP).
	ExactlyOnce QoS = 2
)

// Valid reports whether q is one of the three MQTT QoS levels.
func (q QoS) Valid() bool {
	return q <= ExactlyOnce
}
