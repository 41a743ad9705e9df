package mqtiny

import "fmt"

// ReasonCode is a CONNACK return code (v3.1.1) or an MQTT v5.0 reason code.
// It implements error so it can be used as an errors.Is target:
//
//	if errors.Is(err, mqtiny.ReasonCodeNotAuthorized) { ... }
type ReasonCode uint8

func (rc ReasonCode) Error() string {
	if name, ok := reasonCodeNames[rc]; ok {
		return name
	}
	return fmt.Sprintf("reason code 0x%02X", uint8(rc))
}

// Reason codes 0x00-0x7F indicate success, while 0x80-0xFF indicate failure.
const (
	ReasonCodeSuccess               ReasonCode = 0x00
	ReasonCodeUnacceptableProtocol  ReasonCode = 0x01 // v3.1.1 CONNACK
	ReasonCodeIdentifierRejected    ReasonCode = 0x02 // v3.1.1 CONNACK
	ReasonCodeServerUnavailable     ReasonCode = 0x03 // v3.1.1 CONNACK
	ReasonCodeBadUsernameOrPassword ReasonCode = 0x04 // v3.1.1 CONNACK
	ReasonCodeNotAuthorizedV3       ReasonCode = 0x05 // v3.1.1 CONNACK
	ReasonCodeUnspecifiedError      ReasonCode = 0x80
	ReasonCodeMalformedPacket       ReasonCode = 0x81
	ReasonCodeProtocolError         ReasonCode = 0x82
	ReasonCodeNotAuthorized         ReasonCode = 0x87
	ReasonCodeServerBusy            ReasonCode = 0x89
	ReasonCodeServerShuttingDown    ReasonCode = 0x8B
	ReasonCodeKeepAliveTimeout      ReasonCode = 0x8D
	ReasonCodeSessionTakenOver      ReasonCode = 0x8E
	ReasonCodeTopicFilterInvalid    ReasonCode = 0x90
	ReasonCodeTopicNameInvalid      ReasonCode = 0x91
	ReasonCodePacketTooLarge        ReasonCode = 0x95
	ReasonCodeQuotaExceeded         ReasonCode = 0x97
	ReasonCodeAdministrativeAction  ReasonCode = 0x98
	ReasonCodeQoSNotSupported       ReasonCode = 0x9B
	ReasonCodeUseAnotherServer      ReasonCode = 0x9C
	ReasonCodeServerMoved           ReasonCode = 0x9D
	ReasonCodeConnectionRateExceed  ReasonCode = 0x9F
)

var reasonCodeNames = map[ReasonCode]string{
	ReasonCodeSuccess:               "success",
	ReasonCodeUnacceptableProtocol:  "unacceptable protocol version",
	ReasonCodeIdentifierRejected:    "identifier rejected",
	ReasonCodeServerUnavailable:     "server unavailable",
	ReasonCodeBadUsernameOrPassword: "bad username or password",
	ReasonCodeNotAuthorizedV3:       "not authorized",
	ReasonCodeUnspecifiedError:      "unspecified error",
	ReasonCodeMalformedPacket:       "malformed packet",
	ReasonCodeProtocolError:         "protocol error",
	ReasonCodeNotAuthorized:         "not authorized",
	ReasonCodeServerBusy:            "server busy",
	ReasonCodeServerShuttingDown:    "server shutting down",
	ReasonCodeKeepAliveTimeout:      "keep alive timeout",
	ReasonCodeSessionTakenOver:      "session taken over",
	ReasonCodeTopicFilterInvalid:    "topic filter invalid",
	ReasonCodeTopicNameInvalid:      "topic name invalid",
	ReasonCodePacketTooLarge:        "packet too large",
	ReasonCodeQuotaExceeded:         "quota exceeded",
	ReasonCodeAdministrativeAction:  "administrative action",
	ReasonCodeQoSNotSupported:       "QoS not supported",
	ReasonCodeUseAnotherServer:      "use another server",
	ReasonCodeServerMoved:           "server moved",
	ReasonCodeConnectionRateExceed:  "connection rate exceeded",
}
