package packets

// PubrecPacket represents an MQTT PUBREC control packet (QoS 2, step 1).
type PubrecPacket struct {
	PacketID uint16

	// MQTT v5.0 fields
	ReasonCode uint8  // v5.0
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *PubrecPacket) Type() uint8 {
	return PUBREC
}

// Encode serializes the PUBREC packet into dst.
func (p *PubrecPacket) Encode(dst []byte) (int, error) {
	return encodeAck(dst, PUBREC, 0, p.PacketID, p.Version, p.ReasonCode, p.Properties)
}

// DecodePubrec decodes a PUBREC packet body.
func DecodePubrec(buf []byte, version uint8) (*PubrecPacket, error) {
	id, rc, props, err := decodeAck(buf, version)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{PacketID: id, ReasonCode: rc, Properties: props, Version: version}, nil
}
