package packets

// PubcompPacket represents an MQTT PUBCOMP control packet (QoS 2, step 3).
type PubcompPacket struct {
	PacketID uint16

	// MQTT v5.0 fields
	ReasonCode uint8  // v5.0
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *PubcompPacket) Type() uint8 {
	return PUBCOMP
}

// Encode serializes the PUBCOMP packet into dst.
func (p *PubcompPacket) Encode(dst []byte) (int, error) {
	return encodeAck(dst, PUBCOMP, 0, p.PacketID, p.Version, p.ReasonCode, p.Properties)
}

// DecodePubcomp decodes a PUBCOMP packet body.
func DecodePubcomp(buf []byte, version uint8) (*PubcompPacket, error) {
	id, rc, props, err := decodeAck(buf, version)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{PacketID: id, ReasonCode: rc, Properties: props, Version: version}, nil
}
