package gateway

type State int

const (
	Idle State = iota
	Connecting
	AwaitingHandshake
	Ready
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case AwaitingHandshake:
		return "awaiting_handshake"
	case Ready:
		return "ready"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
