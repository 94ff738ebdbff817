package session

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/chzyer/readline"

	"github.com/certchat/certchat-go/pkg/transport"
)

// ExitCommand ends the session when typed as a whole line.
const ExitCommand = "EXIT"

// Line rejection errors. A rejected line is dropped and the loop continues.
var (
	ErrLineTooLong = errors.New("line exceeds the text frame limit")
	ErrLineNotUTF8 = errors.New("line is not valid UTF-8")
)

// LineReader yields local input one line at a time, without the line
// terminator. *readline.Instance implements it.
type LineReader interface {
	Readline() (string, error)
}

var _ LineReader = (*readline.Instance)(nil)

// Loop moves local input lines onto the outbound queue.
type Loop struct {
	Lines LineReader
	Queue *Queue

	// OnRejected, if set, is told about every line that cannot be sent as a
	// single text frame.
	OnRejected func(line string, err error)
}

// checkLine reports whether line fits in one text frame.
func checkLine(line string) error {
	if len(line) > transport.MaxTextSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrLineTooLong, len(line), transport.MaxTextSize)
	}
	if !utf8.ValidString(line) {
		return ErrLineNotUTF8
	}
	return nil
}

// Run forwards lines until the user types ExitCommand or local input ends,
// and then returns nil. Every other line, including an empty one, is queued
// verbatim unless checkLine rejects it. An interrupt (Ctrl-C) discards the
// line being edited and reading continues.
func (l *Loop) Run() error {
	for {
		line, err := l.Lines.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("read local input: %w", err)
		}

		if line == ExitCommand {
			return nil
		}
		if err := checkLine(line); err != nil {
			if l.OnRejected != nil {
				l.OnRejected(line, err)
			}
			continue
		}
		if err := l.Queue.Push(line); err != nil {
			return err
		}
	}
}

// RunLoop runs a Loop that silently drops lines it cannot send.
func RunLoop(lines LineReader, queue *Queue) error {
	return (&Loop{Lines: lines, Queue: queue}).Run()
}
