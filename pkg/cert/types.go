package cert

import (
	"crypto/ecdsa"
	"crypto/x509"
	"time"
)

// Certificate validity periods.
const (
	// CAValidity is the validity period of a chat CA certificate.
	CAValidity = 20 * 365 * 24 * time.Hour

	// IdentityValidity is the validity period of an account certificate.
	IdentityValidity = 365 * 24 * time.Hour
)

// KeyPair holds an ECDSA P-256 key pair.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// CA is the certificate authority every peer trusts. Only the operator
// issuing identities holds PrivateKey; peers carry the certificate alone.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// Identity is the local peer's credential set: its own certificate and
// key, and the CA certificate used to judge the remote peer.
// It is loaded once per process and never modified afterwards.
type Identity struct {
	Certificate   *x509.Certificate
	PrivateKey    *ecdsa.PrivateKey
	CACertificate *x509.Certificate
}

// Account returns the account name carried in the certificate subject.
func (id *Identity) Account() string {
	if id == nil || id.Certificate == nil {
		return ""
	}
	return id.Certificate.Subject.CommonName
}

// ExpiresAt returns when the identity certificate expires.
func (id *Identity) ExpiresAt() time.Time {
	if id == nil || id.Certificate == nil {
		return time.Time{}
	}
	return id.Certificate.NotAfter
}
