package transport

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Codec errors.
var (
	// ErrCertificateDecode indicates a certificate frame whose payload is not
	// a parseable DER certificate.
	ErrCertificateDecode = errors.New("certificate decode failed")

	// ErrInvalidText indicates a text frame that is not valid UTF-8.
	ErrInvalidText = errors.New("text frame is not valid UTF-8")

	// ErrNoCertificate indicates SendCertificate was called without one.
	ErrNoCertificate = errors.New("no certificate")
)

// Codec reads and writes the two certchat frame shapes on one stream.
type Codec struct {
	certW *FrameWriter
	textW *FrameWriter
	certR *FrameReader
	textR *FrameReader
}

// NewCodec returns a codec over rw. The reader side of rw must not be
// buffered by the caller.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		certW: NewFrameWriter(rw, CertPrefixSize, MaxCertificateSize),
		textW: NewFrameWriter(rw, TextPrefixSize, MaxTextSize),
		certR: NewFrameReader(rw, CertPrefixSize, MaxCertificateSize),
		textR: NewFrameReader(rw, TextPrefixSize, MaxTextSize),
	}
}

// SetEventSource enables protocol logging of every frame.
func (c *Codec) SetEventSource(src EventSource) {
	c.certW.SetEventSource(src)
	c.textW.SetEventSource(src)
	c.certR.SetEventSource(src)
	c.textR.SetEventSource(src)
}

// SendCertificate writes the DER encoding of cert as a certificate frame.
func (c *Codec) SendCertificate(cert *x509.Certificate) error {
	if cert == nil || len(cert.Raw) == 0 {
		return ErrNoCertificate
	}
	return c.certW.WriteFrame(cert.Raw)
}

// ReceiveCertificate reads a certificate frame and parses it.
// A stream that ends before or inside the frame yields ErrFrameTruncated.
func (c *Codec) ReceiveCertificate() (*x509.Certificate, error) {
	der, err := c.certR.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: stream closed before certificate", ErrFrameTruncated)
		}
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateDecode, err)
	}
	return cert, nil
}

// SendText writes s as a text frame. Empty strings are allowed.
func (c *Codec) SendText(s string) error {
	return c.textW.WriteFrame([]byte(s))
}

// ReceiveText reads a text frame. io.EOF is returned unwrapped when the
// peer closed the stream between frames.
func (c *Codec) ReceiveText() (string, error) {
	b, err := c.textR.ReadFrame()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidText
	}
	return string(b), nil
}
