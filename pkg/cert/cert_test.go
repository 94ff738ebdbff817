package cert

import (
	"bytes"
	"crypto/x509"
	"errors"
	"testing"
	"time"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if kp.PrivateKey == nil || kp.PublicKey == nil {
		t.Fatal("key pair has nil members")
	}
	if name := kp.PrivateKey.Curve.Params().Name; name != "P-256" {
		t.Errorf("Expected P-256 curve, got %s", name)
	}
}

func TestComputeSKI(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	ski, err := ComputeSKI(kp.PublicKey)
	if err != nil {
		t.Fatalf("ComputeSKI() error = %v", err)
	}
	if len(ski) != 20 {
		t.Errorf("SKI length = %d, want 20", len(ski))
	}

	ski2, _ := ComputeSKI(kp.PublicKey)
	if !bytes.Equal(ski, ski2) {
		t.Error("Same key should produce same SKI")
	}

	kp2, _ := GenerateKeyPair()
	ski3, _ := ComputeSKI(kp2.PublicKey)
	if bytes.Equal(ski, ski3) {
		t.Error("Different keys should produce different SKIs")
	}
}

func TestGenerateCA(t *testing.T) {
	ca, err := GenerateCA("chat-ca")
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	c := ca.Certificate
	if !c.IsCA {
		t.Error("Certificate should be a CA")
	}
	if c.MaxPathLen != 0 || !c.MaxPathLenZero {
		t.Error("MaxPathLen should be 0")
	}
	if c.Subject.CommonName != "chat-ca" {
		t.Errorf("CN = %q", c.Subject.CommonName)
	}
	if got := c.NotAfter.Sub(c.NotBefore); got < CAValidity-time.Second || got > CAValidity+time.Second {
		t.Errorf("Validity duration = %v, want ~%v", got, CAValidity)
	}
	if !bytes.Equal(c.SubjectKeyId, c.AuthorityKeyId) {
		t.Error("CA should be self-signed (SKI == AKI)")
	}
	if err := c.CheckSignatureFrom(c); err != nil {
		t.Errorf("self signature: %v", err)
	}

	if _, err := GenerateCA(""); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("GenerateCA(\"\") error = %v, want ErrInvalidAccount", err)
	}
}

func TestIssueCertificate(t *testing.T) {
	ca, err := GenerateCA("chat-ca")
	if err != nil {
		t.Fatal(err)
	}
	id, err := NewIdentity(ca, "alice")
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	c := id.Certificate
	if id.Account() != "alice" {
		t.Errorf("Account() = %q, want alice", id.Account())
	}
	if c.IsCA {
		t.Error("leaf must not be a CA")
	}
	if !IssuedBy(c, ca.Certificate) {
		t.Error("AKI does not match CA SKI")
	}
	wantEKU := map[x509.ExtKeyUsage]bool{x509.ExtKeyUsageClientAuth: true, x509.ExtKeyUsageServerAuth: true}
	if len(c.ExtKeyUsage) != 2 || !wantEKU[c.ExtKeyUsage[0]] || !wantEKU[c.ExtKeyUsage[1]] {
		t.Errorf("ExtKeyUsage = %v", c.ExtKeyUsage)
	}
	if got := c.NotAfter.Sub(c.NotBefore); got < IdentityValidity-time.Second || got > IdentityValidity+time.Second {
		t.Errorf("Validity duration = %v, want ~%v", got, IdentityValidity)
	}
	if id.CACertificate != ca.Certificate {
		t.Error("identity should carry the issuing CA certificate")
	}

	if _, err := IssueCertificate(&CA{Certificate: ca.Certificate}, "bob", &id.PrivateKey.PublicKey); !errors.Is(err, ErrCANotAvailable) {
		t.Errorf("issuing without CA key: %v", err)
	}
	if _, err := IssueCertificate(ca, "", &id.PrivateKey.PublicKey); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("issuing without account: %v", err)
	}
}

func TestPEMRoundTrip(t *testing.T) {
	ca, err := GenerateCA("pem-ca")
	if err != nil {
		t.Fatal(err)
	}

	c, err := DecodeCertPEM(EncodeCertPEM(ca.Certificate))
	if err != nil {
		t.Fatalf("DecodeCertPEM: %v", err)
	}
	if !bytes.Equal(c.Raw, ca.Certificate.Raw) {
		t.Error("certificate changed in PEM round trip")
	}

	keyPEM, err := EncodeKeyPEM(ca.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	key, err := DecodeKeyPEM(keyPEM)
	if err != nil {
		t.Fatalf("DecodeKeyPEM: %v", err)
	}
	if !key.Equal(ca.PrivateKey) {
		t.Error("key changed in PEM round trip")
	}

	if _, err := DecodeCertPEM(keyPEM); !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("DecodeCertPEM(key) error = %v, want ErrInvalidPEM", err)
	}
	if _, err := DecodeKeyPEM([]byte("garbage")); !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("DecodeKeyPEM(garbage) error = %v, want ErrInvalidPEM", err)
	}
}

func TestFingerprint(t *testing.T) {
	ca, err := GenerateCA("fp-ca")
	if err != nil {
		t.Fatal(err)
	}
	fp := Fingerprint(ca.Certificate)
	if len(fp) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(fp))
	}
	if Fingerprint(nil) != "" {
		t.Error("Fingerprint(nil) should be empty")
	}
	info := GetCertificateInfo(ca.Certificate)
	if info.Fingerprint != fp || !info.IsCA || info.Subject != "fp-ca" {
		t.Errorf("GetCertificateInfo = %+v", info)
	}
}
