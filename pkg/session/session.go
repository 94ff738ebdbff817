package session

import (
	"crypto/x509"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/certchat/certchat-go/pkg/log"
	"github.com/certchat/certchat-go/pkg/transport"
)

// Role is the local side of the connection.
type Role = log.Role

// Roles.
const (
	Passive = log.RolePassive
	Active  = log.RoleActive
)

// ErrAlreadyValidated is returned by Authenticate on a session that already
// completed its handshake.
var ErrAlreadyValidated = errors.New("session already validated")

// Session is the per-connection context shared by the handshake and the
// message pump: the channel, the local role, the peer certificate and the
// validated flag. A process holds exactly one.
type Session struct {
	id    string
	conn  net.Conn
	role  Role
	codec *transport.Codec

	protocolLogger log.Logger

	mu   sync.RWMutex
	peer *x509.Certificate

	validated atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New wraps an established connection. protocolLogger may be nil.
func New(conn net.Conn, role Role, protocolLogger log.Logger) *Session {
	s := &Session{
		id:             transport.NewConnectionID(),
		conn:           conn,
		role:           role,
		codec:          transport.NewCodec(conn),
		protocolLogger: log.OrNoop(protocolLogger),
	}
	s.codec.SetEventSource(transport.EventSource{
		Logger:     protocolLogger,
		ConnID:     s.id,
		Role:       role,
		RemoteAddr: s.RemoteAddr(),
	})
	return s
}

// ID returns the connection identifier used in protocol log events.
func (s *Session) ID() string { return s.id }

// Role returns the local role.
func (s *Session) Role() Role { return s.role }

// Codec returns the frame codec bound to the connection.
func (s *Session) Codec() *transport.Codec { return s.codec }

// RemoteAddr returns the peer address, or "" if unknown.
func (s *Session) RemoteAddr() string {
	if s.conn == nil || s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Peer returns the peer certificate once the handshake received it.
func (s *Session) Peer() *x509.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer
}

// SetPeer records the certificate the peer presented, before validation.
func (s *Session) SetPeer(peer *x509.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = peer
}

// PeerSubject returns the subject CN of the peer certificate, if any.
func (s *Session) PeerSubject() string {
	if p := s.Peer(); p != nil {
		return p.Subject.CommonName
	}
	return ""
}

// Authenticate marks the session validated with peer as the verified
// certificate. The flag never reverts.
func (s *Session) Authenticate(peer *x509.Certificate) error {
	s.SetPeer(peer)
	if !s.validated.CompareAndSwap(false, true) {
		return ErrAlreadyValidated
	}
	return nil
}

// Validated reports whether the handshake authenticated the peer.
func (s *Session) Validated() bool {
	return s.validated.Load()
}

// LogEvent stamps ev with the session's identifiers and records it in the
// protocol log.
func (s *Session) LogEvent(ev log.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.ConnectionID = s.id
	ev.LocalRole = s.role
	ev.RemoteAddr = s.RemoteAddr()
	if ev.PeerSubject == "" {
		ev.PeerSubject = s.PeerSubject()
	}
	s.protocolLogger.Log(ev)
}

// Close closes the connection. Subsequent calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
		s.LogEvent(log.Event{
			Layer:    log.LayerSession,
			Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: "OPEN",
				NewState: "CLOSED",
			},
		})
	})
	return s.closeErr
}
