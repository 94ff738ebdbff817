package cert

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	caCertFile = "ca.pem"
	caKeyFile  = "ca.key"
)

// CA directory errors.
var (
	ErrCANotAvailable = errors.New("CA private key not available")
	ErrCAExists       = errors.New("CA already exists")
)

// CADir is a directory holding the CA certificate (ca.pem) and, on the
// issuing host only, its private key (ca.key).
type CADir string

// CertPath returns the path of the CA certificate.
func (d CADir) CertPath() string { return filepath.Join(string(d), caCertFile) }

// KeyPath returns the path of the CA private key.
func (d CADir) KeyPath() string { return filepath.Join(string(d), caKeyFile) }

// Save writes ca into the directory. An existing CA is only replaced when
// overwrite is set.
func (d CADir) Save(ca *CA, overwrite bool) error {
	if ca == nil || ca.Certificate == nil {
		return ErrCANotAvailable
	}
	if !overwrite {
		if _, err := os.Stat(d.CertPath()); err == nil {
			return fmt.Errorf("%w: %s", ErrCAExists, d.CertPath())
		}
	}
	if err := os.MkdirAll(string(d), 0o700); err != nil {
		return err
	}
	if err := WriteCertFile(d.CertPath(), ca.Certificate); err != nil {
		return err
	}
	if ca.PrivateKey != nil {
		if err := WriteKeyFile(d.KeyPath(), ca.PrivateKey); err != nil {
			return err
		}
	}
	return nil
}

// LoadCertificate reads the CA certificate only.
func (d CADir) LoadCertificate() (*x509.Certificate, error) {
	c, err := ReadCertFile(d.CertPath())
	if err != nil {
		return nil, fmt.Errorf("load CA certificate: %w", err)
	}
	if !c.IsCA {
		return nil, fmt.Errorf("%s: %w", d.CertPath(), ErrInvalidCertificate)
	}
	return c, nil
}

// Load reads the CA certificate and private key. A missing key yields
// ErrCANotAvailable.
func (d CADir) Load() (*CA, error) {
	c, err := d.LoadCertificate()
	if err != nil {
		return nil, err
	}
	key, err := ReadKeyFile(d.KeyPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCANotAvailable, d.KeyPath())
	}
	if err != nil {
		return nil, fmt.Errorf("load CA key: %w", err)
	}
	return &CA{Certificate: c, PrivateKey: key}, nil
}
