package schema

// SchemaVersion is the current wire and log schema version.
const SchemaVersion uint8 = 1

// MessageType is the discriminant carried by every frame and datagram.
type MessageType uint16

const (
	MsgUnknown MessageType = iota
	// MsgTick forwards a market tick.
	MsgTick
	// MsgSignal submits a trading signal to the order gateway.
	MsgSignal
	// MsgOrderAck carries the gateway's terminal order status.
	MsgOrderAck
	// MsgHeartbeat keeps a control connection alive.
	MsgHeartbeat
	// MsgShutdown asks the peer to close the connection.
	MsgShutdown

	msgTypeEnd
)

// IsKnown reports whether t is a defined message type.
func (t MessageType) IsKnown() bool {
	return t > MsgUnknown && t < msgTypeEnd
}

func (t MessageType) String() string {
	switch t {
	case MsgTick:
		return "Tick"
	case MsgSignal:
		return "Signal"
	case MsgOrderAck:
		return "OrderAck"
	case MsgHeartbeat:
		return "Heartbeat"
	case MsgShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Heartbeat is the payload for MsgHeartbeat.
type Heartbeat struct {
	Sender uint16
	Ts     int64
}
