package tlssession

// State is the state of a [*Session].
type State int

const (
	// StateUninitialized means we have not started the handshake yet.
	StateUninitialized = State(iota)

	// StateHandshaking means the handshake is in progress.
	StateHandshaking

	// StateEstablished means we can read and write application data.
	StateEstablished

	// StateClosed means we sent the close-notify alert. We can still
	// read until the peer closes its side of the channel.
	StateClosed

	// StateErrored means that the handshake or an I/O operation failed.
	StateErrored
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
