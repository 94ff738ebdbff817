package cert

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeystoreExtension is the file suffix of an account keystore.
const KeystoreExtension = ".keystore"

const keystoreVersion = 1

// Keystore errors.
var (
	ErrKeystoreNotFound = errors.New("keystore not found")
	ErrBadPassphrase    = errors.New("wrong passphrase or corrupted keystore")
	ErrKeystoreVersion  = errors.New("unsupported keystore version")
)

// KDFParams are the Argon2id cost parameters used to derive the sealing key.
type KDFParams struct {
	Time    uint32 `cbor:"1,keyasint"`
	Memory  uint32 `cbor:"2,keyasint"` // KiB
	Threads uint8  `cbor:"3,keyasint"`
}

// DefaultKDFParams follows the RFC 9106 second recommended option.
var DefaultKDFParams = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// MaxKDFMemory caps the Argon2 memory cost (KiB) accepted from a keystore file.
const MaxKDFMemory = 1 << 20

// ErrKDFParams reports Argon2 cost parameters outside the accepted range.
var ErrKDFParams = errors.New("invalid key derivation parameters")

func (p KDFParams) validate() error {
	switch {
	case p.Time == 0, p.Threads == 0:
		return fmt.Errorf("%w: time=%d threads=%d", ErrKDFParams, p.Time, p.Threads)
	case p.Memory < 8*uint32(p.Threads), p.Memory > MaxKDFMemory:
		return fmt.Errorf("%w: memory=%d KiB", ErrKDFParams, p.Memory)
	}
	return nil
}

// keystoreRecord is the on-disk CBOR layout.
type keystoreRecord struct {
	Version       uint8     `cbor:"1,keyasint"`
	Account       string    `cbor:"2,keyasint"`
	Certificate   []byte    `cbor:"3,keyasint"`
	CACertificate []byte    `cbor:"4,keyasint"`
	KDF           KDFParams `cbor:"5,keyasint"`
	Salt          []byte    `cbor:"6,keyasint"`
	Nonce         []byte    `cbor:"7,keyasint"`
	SealedKey     []byte    `cbor:"8,keyasint"`
}

// Keystore stores one passphrase-sealed identity per account under Dir.
// Certificates are stored in the clear; the PKCS#8 private key is sealed
// with XChaCha20-Poly1305 under an Argon2id-derived key, with the account
// and both certificates bound as additional data.
type Keystore struct {
	Dir string

	// KDF overrides DefaultKDFParams for newly saved keystores.
	KDF *KDFParams
}

// Path returns the keystore file of account.
func (ks *Keystore) Path(account string) string {
	return filepath.Join(ks.Dir, account+KeystoreExtension)
}

// Exists reports whether a keystore for account is present.
func (ks *Keystore) Exists(account string) bool {
	_, err := os.Stat(ks.Path(account))
	return err == nil
}

func validAccount(account string) error {
	if account == "" || account == "." || account == ".." || strings.ContainsAny(account, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	return nil
}

func deriveKey(passphrase, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

func (r *keystoreRecord) additionalData() []byte {
	ad := make([]byte, 0, len(r.Account)+len(r.Certificate)+len(r.CACertificate))
	ad = append(ad, r.Account...)
	ad = append(ad, r.Certificate...)
	return append(ad, r.CACertificate...)
}

// Save seals id under passphrase and writes it atomically, replacing any
// previous keystore for the same account.
func (ks *Keystore) Save(id *Identity, passphrase []byte) error {
	if id == nil || id.Certificate == nil || id.PrivateKey == nil || id.CACertificate == nil {
		return fmt.Errorf("%w: incomplete identity", ErrInvalidCertificate)
	}
	account := id.Account()
	if err := validAccount(account); err != nil {
		return err
	}

	params := DefaultKDFParams
	if ks.KDF != nil {
		params = *ks.KDF
	}
	if err := params.validate(); err != nil {
		return err
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	rec := keystoreRecord{
		Version:       keystoreVersion,
		Account:       account,
		Certificate:   id.Certificate.Raw,
		CACertificate: id.CACertificate.Raw,
		KDF:           params,
		Salt:          make([]byte, 16),
		Nonce:         make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(rec.Salt); err != nil {
		return err
	}
	if _, err := rand.Read(rec.Nonce); err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, rec.Salt, params))
	if err != nil {
		return err
	}
	rec.SealedKey = aead.Seal(nil, rec.Nonce, pkcs8, rec.additionalData())

	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}
	return writeFileAtomic(ks.Path(account), data)
}

// Load opens the keystore of account with passphrase.
func (ks *Keystore) Load(account string, passphrase []byte) (*Identity, error) {
	if err := validAccount(account); err != nil {
		return nil, err
	}
	path := ks.Path(account)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeystoreNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	var rec keystoreRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrBadPassphrase, path, err)
	}
	if rec.Version != keystoreVersion {
		return nil, fmt.Errorf("%w: %d", ErrKeystoreVersion, rec.Version)
	}
	if rec.Account != account {
		return nil, fmt.Errorf("%w: keystore belongs to %q", ErrBadPassphrase, rec.Account)
	}
	if err := rec.KDF.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPassphrase, err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, rec.Salt, rec.KDF))
	if err != nil {
		return nil, err
	}
	if len(rec.Nonce) != aead.NonceSize() {
		return nil, ErrBadPassphrase
	}
	pkcs8, err := aead.Open(nil, rec.Nonce, rec.SealedKey, rec.additionalData())
	if err != nil {
		return nil, ErrBadPassphrase
	}

	keyAny, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := keyAny.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: unexpected type %T", keyAny)
	}
	leaf, err := x509.ParseCertificate(rec.Certificate)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	ca, err := x509.ParseCertificate(rec.CACertificate)
	if err != nil {
		return nil, fmt.Errorf("parse CA certificate: %w", err)
	}
	if !key.PublicKey.Equal(leaf.PublicKey) {
		return nil, fmt.Errorf("%w: key does not match certificate", ErrInvalidCertificate)
	}

	return &Identity{Certificate: leaf, PrivateKey: key, CACertificate: ca}, nil
}

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
