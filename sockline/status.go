package sockline

// Status represents the authoritative connection state of a Client.
type Status int

const (
	// StatusDisconnected is the initial state and the terminal state
	// after a clean disconnect or an exhausted reconnection budget.
	StatusDisconnected Status = iota
	// StatusConnecting means a socket open is in flight.
	StatusConnecting
	// StatusConnected means the socket is established and usable.
	StatusConnected
	// StatusDisconnecting means a clean close has been requested and the
	// close handshake is in flight.
	StatusDisconnecting
	// StatusBackingOff means a retry timer is pending after a failure.
	StatusBackingOff
)

// String returns the string representation of the Status.
func (status Status) String() string {
	switch status {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusDisconnecting:
		return "Disconnecting"
	case StatusBackingOff:
		return "BackingOff"
	default:
		return "Unknown"
	}
}

// StateChange is delivered to state listeners on every transition.
// Err carries the classified error that caused the transition, or nil
// for clean transitions.
type StateChange struct {
	Previous Status
	Current  Status
	Err      error
}
