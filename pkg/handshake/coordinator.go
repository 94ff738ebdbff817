package handshake

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/certchat/certchat-go/pkg/cert"
	"github.com/certchat/certchat-go/pkg/log"
	"github.com/certchat/certchat-go/pkg/session"
	"github.com/certchat/certchat-go/pkg/transport"
)

// Verdict tokens, sent as text frames.
const (
	TokenAccepted = "Certificate Accepted"
	TokenRejected = "Invalid Certificate"
)

// Handshake errors.
var (
	// ErrInvalidCertificate means the peer certificate failed validation.
	// The returned error also wraps the cert package cause.
	ErrInvalidCertificate = errors.New("peer certificate rejected")

	// ErrPeerRejected means the peer refused the local certificate.
	ErrPeerRejected = errors.New("peer rejected local certificate")

	// ErrUnexpectedToken means the peer answered with neither verdict token.
	ErrUnexpectedToken = errors.New("unexpected verdict token")

	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("handshake already run")

	// ErrNoIdentity means no local identity was configured.
	ErrNoIdentity = errors.New("no local identity")
)

// VerifyFunc judges a peer certificate against the trusted CA.
type VerifyFunc func(peer, ca *x509.Certificate) error

// Config configures a Coordinator.
type Config struct {
	// Identity is the local certificate, key and trusted CA.
	Identity *cert.Identity

	// Verify defaults to cert.VerifyPeerCertificate.
	Verify VerifyFunc

	// OnStateChange is called synchronously on every transition. The state
	// reflects the local verdict on the peer certificate only.
	OnStateChange func(oldState, newState State)

	// OnPeerVerdict is called once the peer's verdict on the local
	// certificate is known. A peer that closes instead of answering counts
	// as a rejection.
	OnPeerVerdict func(accepted bool)

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// Coordinator runs the certificate exchange on one session.
type Coordinator struct {
	mu    sync.RWMutex
	state State
	ran   bool

	sess   *session.Session
	ch     transport.CertificateExchanger
	config Config
}

// NewCoordinator returns a coordinator in StateInit for sess.
func NewCoordinator(sess *session.Session, config Config) *Coordinator {
	if config.Verify == nil {
		config.Verify = cert.VerifyPeerCertificate
	}
	return &Coordinator{
		state:  StateInit,
		sess:   sess,
		ch:     sess.Codec(),
		config: config,
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run performs the handshake. On success the session is marked validated
// and the peer certificate is returned.
//
// Failures leave the session unvalidated. A refused peer certificate yields
// an error wrapping ErrInvalidCertificate after the rejection token was
// sent; a refusal by the peer yields ErrPeerRejected.
func (c *Coordinator) Run() (*x509.Certificate, error) {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	c.ran = true
	c.mu.Unlock()

	id := c.config.Identity
	if id == nil || id.Certificate == nil {
		return nil, ErrNoIdentity
	}

	if err := c.ch.SendCertificate(id.Certificate); err != nil {
		return nil, c.fail("send certificate", err)
	}
	c.setState(StateCertSent, "")

	peer, err := c.ch.ReceiveCertificate()
	if err != nil {
		return nil, c.fail("receive certificate", err)
	}
	c.sess.SetPeer(peer)
	c.setState(StateCertReceived, "")

	c.setState(StateValidating, "")
	if verr := c.config.Verify(peer, id.CACertificate); verr != nil {
		sendErr := c.ch.SendText(TokenRejected)
		c.setState(StateRejected, verr.Error())
		err := fmt.Errorf("%w: %w", ErrInvalidCertificate, verr)
		if sendErr != nil {
			err = errors.Join(err, fmt.Errorf("send rejection: %w", sendErr))
		}
		c.logError("validate", err)
		return nil, err
	}

	if err := c.ch.SendText(TokenAccepted); err != nil {
		return nil, c.fail("send verdict", err)
	}
	c.setState(StateAuthenticated, "")

	token, err := c.ch.ReceiveText()
	switch {
	case err == io.EOF:
		c.peerVerdict(false, "connection closed")
		return nil, c.fail("receive verdict", fmt.Errorf("%w: connection closed", ErrPeerRejected))
	case err != nil:
		return nil, c.fail("receive verdict", err)
	case token == TokenRejected:
		c.peerVerdict(false, "")
		return nil, c.fail("receive verdict", ErrPeerRejected)
	case token != TokenAccepted:
		return nil, c.fail("receive verdict", fmt.Errorf("%w: %q", ErrUnexpectedToken, token))
	}
	c.peerVerdict(true, "")

	if err := c.sess.Authenticate(peer); err != nil {
		return nil, err
	}
	c.debugLog("handshake complete", "peer", peer.Subject.CommonName, "fingerprint", cert.Fingerprint(peer))
	return peer, nil
}

func (c *Coordinator) setState(s State, reason string) {
	c.mu.Lock()
	old := c.state
	c.state = s
	fn := c.config.OnStateChange
	c.mu.Unlock()

	c.debugLog("handshake state", "from", old.String(), "to", s.String(), "conn_id", c.sess.ID())
	c.sess.LogEvent(log.Event{
		Layer:    log.LayerHandshake,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityHandshake,
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
	if fn != nil {
		fn(old, s)
	}
}

func (c *Coordinator) peerVerdict(accepted bool, reason string) {
	verdict := "REJECTED"
	if accepted {
		verdict = "ACCEPTED"
	}
	c.debugLog("peer verdict", "verdict", verdict, "conn_id", c.sess.ID())
	c.sess.LogEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerHandshake,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPeerVerdict,
			NewState: verdict,
			Reason:   reason,
		},
	})
	if fn := c.config.OnPeerVerdict; fn != nil {
		fn(accepted)
	}
}

func (c *Coordinator) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	c.logError(op, err)
	return err
}

func (c *Coordinator) logError(op string, err error) {
	c.debugLog("handshake failed", "op", op, "state", c.State().String(), "error", err)
	c.sess.LogEvent(log.Event{
		Layer:    log.LayerHandshake,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerHandshake,
			Message: err.Error(),
			Context: op,
		},
	})
}

func (c *Coordinator) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
