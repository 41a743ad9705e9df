package packets

import "fmt"

// SubackPacket represents an MQTT SUBACK control packet.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []uint8 // aliases the receive buffer when decoded

	// MQTT v5.0 fields
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *SubackPacket) Type() uint8 {
	return SUBACK
}

// Encode serializes the SUBACK packet into dst.
func (p *SubackPacket) Encode(dst []byte) (int, error) {
	remainingLength := 2 + len(p.ReturnCodes)
	if p.Version >= 5 {
		remainingLength += propertiesLen(p.Properties)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: SUBACK, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	e.uint16(p.PacketID)
	if p.Version >= 5 {
		e.properties(p.Properties)
	}
	e.raw(p.ReturnCodes)
	return e.finish()
}

// DecodeSuback decodes a SUBACK packet body.
func DecodeSuback(buf []byte, version uint8) (*SubackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("buffer too short for SUBACK packet")
	}

	d := &decoder{buf: buf}
	pkt := &SubackPacket{Version: version}

	pkt.PacketID = d.uint16("packet ID")
	if version >= 5 {
		pkt.Properties = d.properties()
	}
	pkt.ReturnCodes = d.rest()

	if err := d.done(); err != nil {
		return nil, err
	}
	if len(pkt.ReturnCodes) == 0 {
		return nil, fmt.Errorf("SUBACK without return codes")
	}
	if version < 5 {
		for _, code := range pkt.ReturnCodes {
			if code > SubackQoS2 && code != SubackFailure {
				return nil, fmt.Errorf("invalid SUBACK return code 0x%02X", code)
			}
		}
	}
	return pkt, nil
}
