package mqtiny

// Publish is an incoming application message borrowed from the client's
// receive buffer.
//
// Topic and Payload alias the buffer without copying. They are valid only
// until the next call to Poll (or PollTimeout) on the same client, or until
// the callback that received the Publish returns. The next incoming packet
// overwrites the bytes in place. Use Clone to keep a message longer.
type Publish struct {
	// Topic the message was published to
	Topic []byte

	// Message payload
	Payload []byte

	// Quality of Service level
	QoS QoS

	// Retained message flag
	Retain bool

	// Duplicate delivery flag
	Dup bool

	// Packet identifier, 0 for QoS 0
	PacketID uint16
}

// TopicString returns a copy of the topic.
func (p *Publish) TopicString() string {
	return string(p.Topic)
}

// Matches reports whether the topic matches the topic filter.
func (p *Publish) Matches(filter string) bool {
	return MatchTopic(filter, string(p.Topic))
}

// Clone copies the message out of the receive buffer.
func (p *Publish) Clone() Message {
	return Message{
		Topic:     string(p.Topic),
		Payload:   append([]byte(nil), p.Payload...),
		QoS:       p.QoS,
		Retained:  p.Retain,
		Duplicate: p.Dup,
	}
}

// Message is an MQTT message that owns its data.
type Message struct {
	// Topic the message was published to
	Topic string

	// Message payload
	Payload []byte

	// Quality of Service level
	QoS QoS

	// Retained message flag
	Retained bool

	// Duplicate delivery flag
	Duplicate bool
}
