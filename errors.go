package mqtiny

import (
	"errors"
	"fmt"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// Standard errors returned by the client.
//
// Connection-level errors (ErrTransport, ErrProtocol, ErrTimeout and the
// refusal errors) always leave the client Disconnected. The others are local:
// the operation is rejected and the connection is untouched.
var (
	// ErrTransport wraps any failure reported by the Transport.
	ErrTransport = errors.New("transport error")

	// ErrProtocol is returned when the server sends a malformed packet or a
	// packet that is not valid in the current connection state.
	ErrProtocol = errors.New("protocol error")

	// ErrTimeout is returned when no CONNACK arrives within the connect timeout
	// or no PINGRESP arrives within the keep-alive window.
	ErrTimeout = errors.New("timeout")

	// ErrNotConnected is returned by operations that need an established connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned by Connect when the client is not Disconnected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrCapacityExceeded is returned when a fixed-capacity table is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrOutOfPacketIds is returned when every in-flight slot is taken.
	ErrOutOfPacketIds = fmt.Errorf("%w: out of packet ids", ErrCapacityExceeded)

	// ErrBufferOverflow is returned when a packet does not fit the transmit
	// or receive buffer.
	ErrBufferOverflow = packets.ErrBufferOverflow

	// ErrInvalidTopic is returned for topic names and filters that break MQTT rules.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrConnectionRefused is returned when the server rejects the connection.
	// You can unwrap this error to find the specific reason if available.
	ErrConnectionRefused = errors.New("connection refused")

	// Specific connection refusal reasons (v3.1.1)
	ErrUnacceptableProtocolVersion = errors.New("unacceptable protocol version")
	ErrIdentifierRejected          = errors.New("identifier rejected")
	ErrServerUnavailable           = errors.New("server unavailable")
	ErrBadUsernameOrPassword       = errors.New("bad username or password")
	ErrNotAuthorized               = errors.New("not authorized")
)

// MqttError represents an error returned by the MQTT server, including
// its return or reason code.
type MqttError struct {
	ReasonCode ReasonCode
	Message    string
	Parent     error
}

func (e *MqttError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mqtt error (0x%02X): %s", uint8(e.ReasonCode), e.Message)
	}
	if e.Parent != nil {
		return fmt.Sprintf("mqtt error (0x%02X): %s", uint8(e.ReasonCode), e.Parent.Error())
	}
	return fmt.Sprintf("mqtt error (0x%02X)", uint8(e.ReasonCode))
}

func (e *MqttError) Unwrap() error {
	return e.Parent
}

// Is implements the errors.Is interface, allowing checks against ReasonCode constants.
func (e *MqttError) Is(target error) bool {
	if rc, ok := target.(ReasonCode); ok {
		return e.ReasonCode == rc
	}
	return false
}

// connackError maps a refused CONNACK to an error. The result always matches
// ErrConnectionRefused and, for v3.1.1 codes, the specific refusal reason.
func connackError(code uint8) error {
	var reason error
	switch code {
	case packets.ConnRefusedUnacceptableProtocol:
		reason = ErrUnacceptableProtocolVersion
	case packets.ConnRefusedIdentifierRejected:
		reason = ErrIdentifierRejected
	case packets.ConnRefusedServerUnavailable:
		reason = ErrServerUnavailable
	case packets.ConnRefusedBadUsernameOrPassword:
		reason = ErrBadUsernameOrPassword
	case packets.ConnRefusedNotAuthorized:
		reason = ErrNotAuthorized
	}

	parent := ErrConnectionRefused
	if reason != nil {
		parent = fmt.Errorf("%w: %w", ErrConnectionRefused, reason)
	}
	return &MqttError{ReasonCode: ReasonCode(code), Parent: parent}
}
