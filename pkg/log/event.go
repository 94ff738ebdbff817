package log

import "time"

// Event is a single protocol log record. Exactly one of the payload
// pointers (Frame, StateChange, Error) is set.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the channel (UUID assigned at connect/accept).
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalRole is the role of the process that wrote the event.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// PeerSubject is the subject CN of the peer certificate, once received.
	PeerSubject string `cbor:"8,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of data flow relative to the local process.
type Direction uint8

const (
	// DirectionIn indicates data read from the peer.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to the peer.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerHandshake is the certificate exchange.
	LayerHandshake Layer = 1
	// LayerSession is the duplex message exchange.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerHandshake:
		return "HANDSHAKE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer parses a layer name as produced by Layer.String.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range []Layer{LayerTransport, LayerHandshake, LayerSession} {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame carrying a certificate, verdict or text.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as produced by Category.String.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryMessage, CategoryState, CategoryError} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Role indicates whether the local endpoint listened or dialed.
type Role uint8

const (
	// RolePassive is the listening side.
	RolePassive Role = 0
	// RoleActive is the dialing side.
	RoleActive Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RolePassive:
		return "PASSIVE"
	case RoleActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// FrameKind tells what a frame carried.
type FrameKind uint8

const (
	// FrameKindText is a 2-byte-prefixed text frame (chat line or verdict token).
	FrameKindText FrameKind = 0
	// FrameKindCertificate is a 4-byte-prefixed DER certificate frame.
	FrameKindCertificate FrameKind = 1
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameKindText:
		return "TEXT"
	case FrameKindCertificate:
		return "CERT"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload without its length prefix (may be truncated).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	Kind FrameKind `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures handshake and session lifecycle events.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection is the TCP channel itself.
	StateEntityConnection StateEntity = 0
	// StateEntitySession is the duplex message exchange.
	StateEntitySession StateEntity = 1
	// StateEntityHandshake is the certificate exchange.
	StateEntityHandshake StateEntity = 2
	// StateEntityPeerVerdict is the peer's answer to the local certificate.
	// NewState is ACCEPTED or REJECTED.
	StateEntityPeerVerdict StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	case StateEntityHandshake:
		return "HANDSHAKE"
	case StateEntityPeerVerdict:
		return "PEER_VERDICT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context names the operation that failed, e.g. "inbound" or "validate".
	Context string `cbor:"4,keyasint,omitempty"`
}
