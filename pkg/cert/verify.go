package cert

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Verification errors. Every failure returned by VerifyPeerCertificate
// wraps ErrInvalidCertificate, and additionally one of the others where
// the cause is known.
var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrCertExpired        = errors.New("certificate has expired")
	ErrCertNotYetValid    = errors.New("certificate is not yet valid")
	ErrInvalidChain       = errors.New("certificate not issued by trusted CA")
	ErrUnexpectedCA       = errors.New("CA certificate presented as identity")
)

// VerifyPeerCertificate checks that peer was issued by ca, is inside its
// validity window and allows client or server authentication.
//
// ca is the only trust anchor; no intermediates are accepted. Possession of
// the matching private key is not proven here.
func VerifyPeerCertificate(peer, ca *x509.Certificate) error {
	return verifyAt(peer, ca, time.Now())
}

func verifyAt(peer, ca *x509.Certificate, now time.Time) error {
	if peer == nil {
		return fmt.Errorf("%w: no certificate", ErrInvalidCertificate)
	}
	if ca == nil {
		return fmt.Errorf("%w: %w: no CA configured", ErrInvalidCertificate, ErrInvalidChain)
	}
	if peer.IsCA {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, ErrUnexpectedCA)
	}

	if now.Before(peer.NotBefore) {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, ErrCertNotYetValid)
	}
	if now.After(peer.NotAfter) {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, ErrCertExpired)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca)

	opts := x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}
	if _, err := peer.Verify(opts); err != nil {
		if IssuedBy(peer, ca) {
			return fmt.Errorf("%w: %w: names the trusted CA but fails verification: %v", ErrInvalidCertificate, ErrInvalidChain, err)
		}
		return fmt.Errorf("%w: %w: %v", ErrInvalidCertificate, ErrInvalidChain, err)
	}
	return nil
}

// IssuedBy reports whether c names ca as its issuer by key identifier.
func IssuedBy(c, ca *x509.Certificate) bool {
	if c == nil || ca == nil || len(c.AuthorityKeyId) == 0 {
		return false
	}
	return bytes.Equal(c.AuthorityKeyId, ca.SubjectKeyId)
}

// Fingerprint returns the lowercase hex SHA-256 of the DER encoding.
func Fingerprint(c *x509.Certificate) string {
	if c == nil {
		return ""
	}
	sum := sha256.Sum256(c.Raw)
	return hex.EncodeToString(sum[:])
}

// CertificateInfo is the human-readable summary printed by tools.
type CertificateInfo struct {
	Subject     string
	Issuer      string
	Serial      string
	Fingerprint string
	NotBefore   time.Time
	NotAfter    time.Time
	IsCA        bool
	SKI         []byte
	AKI         []byte
}

// GetCertificateInfo summarises c.
func GetCertificateInfo(c *x509.Certificate) *CertificateInfo {
	if c == nil {
		return nil
	}
	return &CertificateInfo{
		Subject:     c.Subject.CommonName,
		Issuer:      c.Issuer.CommonName,
		Serial:      c.SerialNumber.Text(16),
		Fingerprint: Fingerprint(c),
		NotBefore:   c.NotBefore,
		NotAfter:    c.NotAfter,
		IsCA:        c.IsCA,
		SKI:         c.SubjectKeyId,
		AKI:         c.AuthorityKeyId,
	}
}
