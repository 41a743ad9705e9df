package packets

import "fmt"

// Filter is one topic filter and its requested QoS in a SUBSCRIBE packet.
type Filter struct {
	Topic string
	QoS   uint8
}

// SubscribePacket represents an MQTT SUBSCRIBE control packet.
type SubscribePacket struct {
	PacketID uint16
	Filters  []Filter

	// MQTT v5.0 fields
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *SubscribePacket) Type() uint8 {
	return SUBSCRIBE
}

// Encode serializes the SUBSCRIBE packet into dst.
func (p *SubscribePacket) Encode(dst []byte) (int, error) {
	if len(p.Filters) == 0 {
		return 0, fmt.Errorf("SUBSCRIBE requires at least one topic filter")
	}

	remainingLength := p.remainingLength()

	// SUBSCRIBE has fixed header flags = 0x02 (bit 1 set)
	e, err := newEncoder(dst, FixedHeader{PacketType: SUBSCRIBE, Flags: flagsReserved, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	e.uint16(p.PacketID)
	if p.Version >= 5 {
		e.properties(p.Properties)
	}
	for _, f := range p.Filters {
		e.string(f.Topic)
		// QoS (Bits 0-1); the v5.0 subscription options above bit 1 are left at 0
		e.byte(f.QoS & 0x03)
	}
	return e.finish()
}

// EncodedLen returns the total number of bytes Encode writes.
func (p *SubscribePacket) EncodedLen() int {
	return FixedHeader{RemainingLength: p.remainingLength()}.PacketLen()
}

func (p *SubscribePacket) remainingLength() int {
	n := 2 // PacketID
	if p.Version >= 5 {
		n += propertiesLen(p.Properties)
	}
	for _, f := range p.Filters {
		n += FilterLen(f.Topic)
	}
	return n
}

// FilterLen returns the bytes one topic filter adds to a SUBSCRIBE body.
func FilterLen(topic string) int {
	return 2 + len(topic) + 1 // Topic + OptionsByte
}

// DecodeSubscribe decodes a SUBSCRIBE packet body.
func DecodeSubscribe(buf []byte, version uint8) (*SubscribePacket, error) {
	d := &decoder{buf: buf}
	pkt := &SubscribePacket{Version: version}

	pkt.PacketID = d.uint16("packet ID")
	if version >= 5 {
		pkt.Properties = d.properties()
	}

	for d.err == nil && d.remaining() > 0 {
		topic := d.string("topic filter")
		options := d.byte("subscription options")
		if d.err != nil {
			break
		}
		if options&0x03 == 3 {
			return nil, fmt.Errorf("invalid QoS 3 for %q", topic)
		}
		if version < 5 && options&0xFC != 0 {
			return nil, fmt.Errorf("reserved subscription option bits set for %q", topic)
		}
		pkt.Filters = append(pkt.Filters, Filter{Topic: topic, QoS: options & 0x03})
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	if pkt.PacketID == 0 {
		return nil, fmt.Errorf("packet ID 0 is not allowed")
	}
	if len(pkt.Filters) == 0 {
		return nil, fmt.Errorf("SUBSCRIBE without topic filters")
	}
	return pkt, nil
}
