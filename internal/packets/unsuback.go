package packets

import "fmt"

// UnsubackPacket represents an MQTT UNSUBACK control packet.
type UnsubackPacket struct {
	PacketID uint16

	// MQTT v5.0 fields
	ReasonCodes []uint8 // v5.0, one per topic filter
	Properties  []byte  // v5.0
	Version     uint8   // 4 or 5
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() uint8 {
	return UNSUBACK
}

// Encode serializes the UNSUBACK packet into dst.
func (p *UnsubackPacket) Encode(dst []byte) (int, error) {
	remainingLength := 2
	if p.Version >= 5 {
		remainingLength += propertiesLen(p.Properties) + len(p.ReasonCodes)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: UNSUBACK, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	e.uint16(p.PacketID)
	if p.Version >= 5 {
		e.properties(p.Properties)
		e.raw(p.ReasonCodes)
	}
	return e.finish()
}

// DecodeUnsuback decodes an UNSUBACK packet body.
func DecodeUnsuback(buf []byte, version uint8) (*UnsubackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("buffer too short for UNSUBACK packet")
	}

	d := &decoder{buf: buf}
	pkt := &UnsubackPacket{Version: version}

	pkt.PacketID = d.uint16("packet ID")
	if version >= 5 {
		pkt.Properties = d.properties()
		if d.remaining() > 0 {
			pkt.ReasonCodes = d.rest()
		}
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return pkt, nil
}
