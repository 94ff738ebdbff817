package handshake

// State is a handshake phase.
type State uint8

const (
	// StateInit is the state before anything was sent.
	StateInit State = iota

	// StateCertSent means the local certificate frame was written.
	StateCertSent

	// StateCertReceived means the peer certificate was read and parsed.
	StateCertReceived

	// StateValidating means the peer certificate is being checked.
	StateValidating

	// StateAuthenticated is terminal: the peer certificate was accepted.
	StateAuthenticated

	// StateRejected is terminal: the peer certificate was refused.
	StateRejected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCertSent:
		return "CERT_SENT"
	case StateCertReceived:
		return "CERT_RECEIVED"
	case StateValidating:
		return "VALIDATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateAuthenticated || s == StateRejected
}
