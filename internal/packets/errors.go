package packets

import "errors"

var (
	// ErrIncomplete is returned by Decode when buf holds only part of a packet.
	// The caller should read more bytes and retry with the same data.
	ErrIncomplete = errors.New("incomplete packet")

	// ErrMalformed is returned when the bytes can never form a valid packet.
	ErrMalformed = errors.New("malformed packet")

	// ErrBufferOverflow is returned by Encode when dst is too small.
	ErrBufferOverflow = errors.New("buffer overflow")

	// ErrVarIntRange is returned when a value cannot be represented as a
	// Variable Byte Integer (more than 268,435,455).
	ErrVarIntRange = errors.New("variable byte integer out of range")

	// ErrStringTooLong is returned when a string or binary field exceeds 65535 bytes.
	ErrStringTooLong = errors.New("field exceeds 65535 bytes")
)
