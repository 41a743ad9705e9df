package packets

// DisconnectPacket represents an MQTT DISCONNECT control packet.
type DisconnectPacket struct {
	// MQTT v5.0 fields
	ReasonCode uint8  // v5.0
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 {
	return DISCONNECT
}

// Encode serializes the DISCONNECT packet into dst.
func (p *DisconnectPacket) Encode(dst []byte) (int, error) {
	extended := p.Version >= 5 && (p.ReasonCode != 0 || p.Properties != nil)

	remainingLength := 0
	if extended {
		remainingLength = 1 + propertiesLen(p.Properties)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: DISCONNECT, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}
	if extended {
		e.byte(p.ReasonCode)
		e.properties(p.Properties)
	}
	return e.finish()
}

// DecodeDisconnect decodes a DISCONNECT packet body.
func DecodeDisconnect(buf []byte, version uint8) (*DisconnectPacket, error) {
	d := &decoder{buf: buf}
	pkt := &DisconnectPacket{Version: version}

	if version >= 5 && d.remaining() > 0 {
		pkt.ReasonCode = d.byte("reason code")
		if d.remaining() > 0 {
			pkt.Properties = d.properties()
		}
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return pkt, nil
}
