package packets

import "fmt"

// PublishPacket represents an MQTT PUBLISH control packet.
//
// Topic and Payload are byte slices so a decoded packet can alias the
// receive buffer instead of copying.
type PublishPacket struct {
	// Fixed header flags
	Dup    bool
	QoS    uint8
	Retain bool

	// Variable header
	Topic    []byte
	PacketID uint16 // Only present if QoS > 0

	// Payload
	Payload []byte

	// MQTT v5.0 fields
	Properties []byte
	Version    uint8 // 4 for v3.1.1, 5 for v5.0
}

// Type returns the packet type.
func (p *PublishPacket) Type() uint8 {
	return PUBLISH
}

func (p *PublishPacket) flags() uint8 {
	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}
	return flags
}

// EncodedLen returns the total number of bytes Encode writes.
func (p *PublishPacket) EncodedLen() int {
	return FixedHeader{RemainingLength: p.remainingLength()}.PacketLen()
}

func (p *PublishPacket) remainingLength() int {
	n := 2 + len(p.Topic)
	if p.QoS > 0 {
		n += 2
	}
	if p.Version >= 5 {
		n += propertiesLen(p.Properties)
	}
	return n + len(p.Payload)
}

// Encode serializes the PUBLISH packet into dst.
func (p *PublishPacket) Encode(dst []byte) (int, error) {
	if p.QoS > QoS2 {
		return 0, fmt.Errorf("invalid QoS %d", p.QoS)
	}

	e, err := newEncoder(dst, FixedHeader{
		PacketType:      PUBLISH,
		Flags:           p.flags(),
		RemainingLength: p.remainingLength(),
	})
	if err != nil {
		return 0, err
	}

	e.binary(p.Topic)
	if p.QoS > 0 {
		e.uint16(p.PacketID)
	}
	if p.Version >= 5 {
		e.properties(p.Properties)
	}
	e.raw(p.Payload)

	return e.finish()
}

// DecodePublish decodes a PUBLISH packet body. Topic, Payload and Properties
// alias buf.
func DecodePublish(buf []byte, fixedHeader FixedHeader, version uint8) (*PublishPacket, error) {
	pkt := &PublishPacket{
		Version: version,
		Dup:     (fixedHeader.Flags & 0x08) != 0,
		QoS:     (fixedHeader.Flags >> 1) & 0x03,
		Retain:  (fixedHeader.Flags & 0x01) != 0,
	}

	d := &decoder{buf: buf}
	pkt.Topic = d.utf8("topic")

	// Packet ID (only for QoS > 0)
	if pkt.QoS > 0 {
		pkt.PacketID = d.uint16("packet ID")
		if d.err == nil && pkt.PacketID == 0 {
			return nil, fmt.Errorf("packet ID 0 is not allowed")
		}
	}

	// Properties (v5.0 only)
	if version >= 5 {
		pkt.Properties = d.properties()
	}

	// Payload (rest of the buffer)
	pkt.Payload = d.rest()

	if err := d.done(); err != nil {
		return nil, err
	}
	return pkt, nil
}
