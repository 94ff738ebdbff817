package transport

import "crypto/x509"

// CertificateExchanger moves certificate and verdict frames during the
// handshake. Implemented by Codec.
type CertificateExchanger interface {
	SendCertificate(cert *x509.Certificate) error
	ReceiveCertificate() (*x509.Certificate, error)
	SendText(s string) error
	ReceiveText() (string, error)
}

// TextChannel carries chat lines after authentication. Implemented by Codec.
type TextChannel interface {
	SendText(s string) error
	ReceiveText() (string, error)
}

var (
	_ CertificateExchanger = (*Codec)(nil)
	_ TextChannel          = (*Codec)(nil)
)
