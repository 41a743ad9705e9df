package packets

import "fmt"

// ConnackPacket represents an MQTT CONNACK control packet.
type ConnackPacket struct {
	// Session present flag (v3.1.1+)
	SessionPresent bool

	// Return code (v3.1.1) or reason code (v5.0)
	ReturnCode uint8

	// MQTT v5.0 fields
	Properties []byte
	Version    uint8
}

// Type returns the packet type.
func (p *ConnackPacket) Type() uint8 {
	return CONNACK
}

// Encode serializes the CONNACK packet into dst.
func (p *ConnackPacket) Encode(dst []byte) (int, error) {
	remainingLength := 2 // Ack Flags + Return Code
	if p.Version >= 5 {
		remainingLength += propertiesLen(p.Properties)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: CONNACK, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	var ackFlags uint8
	if p.SessionPresent {
		ackFlags |= 0x01
	}
	e.byte(ackFlags)
	e.byte(p.ReturnCode)
	if p.Version >= 5 {
		e.properties(p.Properties)
	}
	return e.finish()
}

// DecodeConnack decodes a CONNACK packet body.
func DecodeConnack(buf []byte, version uint8) (*ConnackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("buffer too short for CONNACK packet")
	}

	d := &decoder{buf: buf}
	pkt := &ConnackPacket{Version: version}

	// Connect acknowledge flags
	ackFlags := d.byte("acknowledge flags")
	if ackFlags&0xFE != 0 {
		return nil, fmt.Errorf("reserved acknowledge flags set: 0x%02X", ackFlags)
	}
	pkt.SessionPresent = (ackFlags & 0x01) != 0
	pkt.ReturnCode = d.byte("return code")

	// Properties (v5.0 only)
	if version >= 5 && d.remaining() > 0 {
		pkt.Properties = d.properties()
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return pkt, nil
}
