package mqtiny

// ConnectionState is the state of the client's connection state machine.
type ConnectionState uint8

const (
	// Disconnected is the initial state and the state after any
	// connection-level failure.
	Disconnected ConnectionState = iota
	// Connecting means CONNECT was sent and the client is waiting for CONNACK.
	Connecting
	// Connected means the server accepted the connection.
	Connected
	// Disconnecting is held while DISCONNECT is being written.
	Disconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
