package packets

// VarIntLen returns how many bytes the Variable Byte Integer encoding of value takes.
// It returns 0 if value is out of range.
func VarIntLen(value int) int {
	switch {
	case value < 0 || value > MaxRemainingLength:
		return 0
	case value < 128:
		return 1
	case value < 16384:
		return 2
	case value < 2097152:
		return 3
	default:
		return 4
	}
}

// PutVarInt encodes value as a Variable Byte Integer (1-4 bytes) into dst.
// Algorithm from MQTT v3.1.1 spec section 2.2.3
func PutVarInt(dst []byte, value int) (int, error) {
	size := VarIntLen(value)
	if size == 0 {
		return 0, ErrVarIntRange
	}
	if len(dst) < size {
		return 0, ErrBufferOverflow
	}

	n := 0
	for {
		digit := byte(value % 128)
		value /= 128
		if value > 0 {
			digit |= 0x80
		}
		dst[n] = digit
		n++
		if value == 0 {
			break
		}
	}
	return n, nil
}

// AppendVarInt appends the Variable Byte Integer encoding of value to dst.
func AppendVarInt(dst []byte, value int) ([]byte, error) {
	var tmp [4]byte
	n, err := PutVarInt(tmp[:], value)
	if err != nil {
		return dst, err
	}
	return append(dst, tmp[:n]...), nil
}

// DecodeVarInt reads a Variable Byte Integer from the start of buf.
// Returns the decoded value and the number of bytes read.
//
// ErrIncomplete means buf ends before the last byte of the integer; a fifth
// continuation byte is ErrMalformed.
func DecodeVarInt(buf []byte) (int, int, error) {
	value := 0
	multiplier := 1
	for i := 0; i < 4; i++ {
		if i >= len(buf) {
			return 0, 0, ErrIncomplete
		}
		b := buf[i]
		value += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		multiplier *= 128
	}
	return 0, 0, ErrMalformed
}
