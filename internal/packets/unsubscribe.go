package packets

import "fmt"

// UnsubscribePacket represents an MQTT UNSUBSCRIBE control packet.
type UnsubscribePacket struct {
	PacketID uint16
	Topics   []string

	// MQTT v5.0 fields
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() uint8 {
	return UNSUBSCRIBE
}

// Encode serializes the UNSUBSCRIBE packet into dst.
func (p *UnsubscribePacket) Encode(dst []byte) (int, error) {
	if len(p.Topics) == 0 {
		return 0, fmt.Errorf("UNSUBSCRIBE requires at least one topic filter")
	}

	remainingLength := 2
	if p.Version >= 5 {
		remainingLength += propertiesLen(p.Properties)
	}
	for _, topic := range p.Topics {
		remainingLength += 2 + len(topic)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: UNSUBSCRIBE, Flags: flagsReserved, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	e.uint16(p.PacketID)
	if p.Version >= 5 {
		e.properties(p.Properties)
	}
	for _, topic := range p.Topics {
		e.string(topic)
	}
	return e.finish()
}

// DecodeUnsubscribe decodes an UNSUBSCRIBE packet body.
func DecodeUnsubscribe(buf []byte, version uint8) (*UnsubscribePacket, error) {
	d := &decoder{buf: buf}
	pkt := &UnsubscribePacket{Version: version}

	pkt.PacketID = d.uint16("packet ID")
	if version >= 5 {
		pkt.Properties = d.properties()
	}
	for d.err == nil && d.remaining() > 0 {
		topic := d.string("topic filter")
		if d.err == nil {
			pkt.Topics = append(pkt.Topics, topic)
		}
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	if pkt.PacketID == 0 {
		return nil, fmt.Errorf("packet ID 0 is not allowed")
	}
	if len(pkt.Topics) == 0 {
		return nil, fmt.Errorf("UNSUBSCRIBE without topic filters")
	}
	return pkt, nil
}
