package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Organization is written into the subject of every generated certificate.
const Organization = "certchat"

// ErrInvalidAccount indicates an empty or unusable account name.
var ErrInvalidAccount = errors.New("invalid account name")

// GenerateKeyPair creates a new P-256 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{PrivateKey: priv, PublicKey: &priv.PublicKey}, nil
}

// ComputeSKI derives the 20-byte Subject Key Identifier of pub
// (SHA-1 over the subjectPublicKey bit string, RFC 5280 method 1).
func ComputeSKI(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	var spki struct {
		Algorithm        pkix.AlgorithmIdentifier
		SubjectPublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, err
	}
	sum := sha1.Sum(spki.SubjectPublicKey.Bytes)
	return sum[:], nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}

// GenerateCA creates a self-signed CA named name.
// The CA may sign leaf certificates only (path length zero).
func GenerateCA(name string) (*CA, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: CA name is empty", ErrInvalidAccount)
	}
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	ski, err := ComputeSKI(kp.PublicKey)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	notBefore := time.Now().Add(-time.Minute).UTC()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   name,
			Organization: []string{Organization},
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(CAValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		SubjectKeyId:          ski,
		AuthorityKeyId:        ski,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, kp.PublicKey, kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &CA{Certificate: cert, PrivateKey: kp.PrivateKey}, nil
}

// IssueCertificate signs a one-year account certificate for pub.
// The subject CN is the account name and the certificate is usable for
// both client and server authentication, since either peer may dial.
func IssueCertificate(ca *CA, account string, pub *ecdsa.PublicKey) (*x509.Certificate, error) {
	if ca == nil || ca.Certificate == nil || ca.PrivateKey == nil {
		return nil, ErrCANotAvailable
	}
	if account == "" {
		return nil, ErrInvalidAccount
	}
	ski, err := ComputeSKI(pub)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	notBefore := time.Now().Add(-time.Minute).UTC()
	notAfter := notBefore.Add(IdentityValidity)
	if notAfter.After(ca.Certificate.NotAfter) {
		notAfter = ca.Certificate.NotAfter
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   account,
			Organization: []string{Organization},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		SubjectKeyId:          ski,
		AuthorityKeyId:        ca.Certificate.SubjectKeyId,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.Certificate, pub, ca.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign certificate for %q: %w", account, err)
	}
	return x509.ParseCertificate(der)
}

// NewIdentity generates a key pair for account and has ca sign it.
func NewIdentity(ca *CA, account string) (*Identity, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	c, err := IssueCertificate(ca, account, kp.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Certificate:   c,
		PrivateKey:    kp.PrivateKey,
		CACertificate: ca.Certificate,
	}, nil
}
