package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/certchat/certchat-go/pkg/log"
)

// Framing constants.
const (
	// CertPrefixSize is the length prefix of a certificate frame.
	CertPrefixSize = 4

	// TextPrefixSize is the length prefix of a text frame.
	TextPrefixSize = 2

	// MaxCertificateSize bounds an incoming certificate frame (64 KiB).
	MaxCertificateSize = 64 * 1024

	// MaxTextSize is the largest text payload a 2-byte prefix can describe.
	MaxTextSize = 1<<16 - 1

	// MaxLogFrameDataSize caps the payload bytes copied into a log event.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates a payload longer than the frame allows.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrInvalidPrefixSize indicates a prefix size other than 2 or 4.
	ErrInvalidPrefixSize = errors.New("invalid length prefix size")
)

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// EventSource describes the connection that frame events belong to.
type EventSource struct {
	Logger     log.Logger
	ConnID     string
	Role       log.Role
	RemoteAddr string
}

func (s EventSource) frameEvent(prefix int, data []byte, dir log.Direction) log.Event {
	kind := log.FrameKindText
	if prefix == CertPrefixSize {
		kind = log.FrameKindCertificate
	}
	logged, truncated := data, false
	if len(data) > MaxLogFrameDataSize {
		logged, truncated = data[:MaxLogFrameDataSize], true
	}
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.ConnID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		LocalRole:    s.Role,
		RemoteAddr:   s.RemoteAddr,
		Frame: &log.FrameEvent{
			Kind:      kind,
			Size:      FrameSize(prefix, len(data)),
			Data:      logged,
			Truncated: truncated,
		},
	}
}

func checkPrefix(prefix int) {
	if prefix != CertPrefixSize && prefix != TextPrefixSize {
		panic(fmt.Sprintf("transport: %v: %d", ErrInvalidPrefixSize, prefix))
	}
}

// FrameWriter writes length-prefixed frames with a fixed prefix size.
type FrameWriter struct {
	mu      sync.Mutex
	w       io.Writer
	prefix  int
	maxSize uint32
	src     EventSource
}

// NewFrameWriter returns a writer emitting frames with a prefix of the given
// size (CertPrefixSize or TextPrefixSize) and payloads up to maxSize bytes.
func NewFrameWriter(w io.Writer, prefix int, maxSize uint32) *FrameWriter {
	checkPrefix(prefix)
	return &FrameWriter{w: w, prefix: prefix, maxSize: maxSize}
}

// SetEventSource configures protocol logging. A nil Logger disables it.
func (fw *FrameWriter) SetEventSource(src EventSource) {
	fw.src = src
}

// WriteFrame writes data as one frame. The prefix and payload go out in a
// single Write, followed by Flush if the destination is buffered.
// Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if uint64(len(data)) > uint64(fw.maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxSize)
	}

	frame := make([]byte, FrameSize(fw.prefix, len(data)))
	if fw.prefix == CertPrefixSize {
		binary.BigEndian.PutUint32(frame, uint32(len(data)))
	} else {
		binary.BigEndian.PutUint16(frame, uint16(len(data)))
	}
	copy(frame[fw.prefix:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if f, ok := fw.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
	}

	if fw.src.Logger != nil {
		fw.src.Logger.Log(fw.src.frameEvent(fw.prefix, data, log.DirectionOut))
	}
	return nil
}

// FrameReader reads length-prefixed frames with a fixed prefix size.
// It performs no read-ahead.
type FrameReader struct {
	r       io.Reader
	prefix  int
	maxSize uint32
	buf     [CertPrefixSize]byte
	src     EventSource
}

// NewFrameReader returns a reader for frames with the given prefix size
// whose declared length may not exceed maxSize.
func NewFrameReader(r io.Reader, prefix int, maxSize uint32) *FrameReader {
	checkPrefix(prefix)
	return &FrameReader{r: r, prefix: prefix, maxSize: maxSize}
}

// SetEventSource configures protocol logging. A nil Logger disables it.
func (fr *FrameReader) SetEventSource(src EventSource) {
	fr.src = src
}

// ReadFrame reads one frame and returns its payload.
//
// io.EOF is returned unwrapped when the stream ends cleanly before a prefix.
// A stream ending inside the prefix or payload yields ErrFrameTruncated.
// A zero-length frame yields an empty, non-nil payload.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	prefix := fr.buf[:fr.prefix]
	if _, err := io.ReadFull(fr.r, prefix); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: length prefix", ErrFrameTruncated)
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	var length uint32
	if fr.prefix == CertPrefixSize {
		length = binary.BigEndian.Uint32(prefix)
	} else {
		length = uint32(binary.BigEndian.Uint16(prefix))
	}
	if length > fr.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: want %d payload bytes", ErrFrameTruncated, length)
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if fr.src.Logger != nil {
		fr.src.Logger.Log(fr.src.frameEvent(fr.prefix, payload, log.DirectionIn))
	}
	return payload, nil
}

// FrameSize returns the encoded size of a frame carrying payloadSize bytes.
func FrameSize(prefix, payloadSize int) int {
	return prefix + payloadSize
}
