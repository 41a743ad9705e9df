package packets

// Packet represents any MQTT control packet.
//
// Encode writes the complete packet (fixed header included) into dst and
// returns the number of bytes written. It never grows dst; a destination
// that is too small yields ErrBufferOverflow and leaves the written prefix
// unspecified.
type Packet interface {
	Type() uint8
	Encode(dst []byte) (int, error)
}
