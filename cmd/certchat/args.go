package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/certchat/certchat-go/pkg/session"
	"github.com/certchat/certchat-go/pkg/transport"
)

var errUsage = errors.New("usage: certchat [flags] [listen-port | host port]")

// invocation is the connection the positional arguments ask for.
type invocation struct {
	Role    session.Role
	Address string

	// Ignored holds arguments beyond host and port.
	Ignored []string
}

// parseArgs routes positional arguments to a role. No argument listens on
// defaultPort, one argument listens on that port, and two or more dial the
// first two as host and port.
func parseArgs(args []string, defaultPort string) (*invocation, error) {
	switch len(args) {
	case 0:
		if defaultPort != "" {
			if err := checkPort(defaultPort); err != nil {
				return nil, err
			}
		}
		return &invocation{Role: session.Passive, Address: transport.ListenAddress(defaultPort)}, nil

	case 1:
		if err := checkPort(args[0]); err != nil {
			return nil, err
		}
		return &invocation{Role: session.Passive, Address: transport.ListenAddress(args[0])}, nil

	default:
		if args[0] == "" {
			return nil, fmt.Errorf("%w: empty host", errUsage)
		}
		if err := checkPort(args[1]); err != nil {
			return nil, err
		}
		return &invocation{
			Role:    session.Active,
			Address: transport.DialAddress(args[0], args[1]),
			Ignored: args[2:],
		}, nil
	}
}

func checkPort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: invalid port %q", errUsage, s)
	}
	return nil
}
