package main

import (
	"errors"

	"github.com/certchat/certchat-go/pkg/handshake"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

// exitCode maps the result of run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, handshake.ErrInvalidCertificate), errors.Is(err, handshake.ErrPeerRejected):
		return exitRejected
	default:
		return exitFailure
	}
}
