package packets

// PubrelPacket represents an MQTT PUBREL control packet (QoS 2, step 2).
type PubrelPacket struct {
	PacketID uint16

	// MQTT v5.0 fields
	ReasonCode uint8  // v5.0
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *PubrelPacket) Type() uint8 {
	return PUBREL
}

// Encode serializes the PUBREL packet into dst.
func (p *PubrelPacket) Encode(dst []byte) (int, error) {
	return encodeAck(dst, PUBREL, flagsReserved, p.PacketID, p.Version, p.ReasonCode, p.Properties)
}

// DecodePubrel decodes a PUBREL packet body.
func DecodePubrel(buf []byte, version uint8) (*PubrelPacket, error) {
	id, rc, props, err := decodeAck(buf, version)
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{PacketID: id, ReasonCode: rc, Properties: props, Version: version}, nil
}
