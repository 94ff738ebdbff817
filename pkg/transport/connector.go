package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// DefaultPort is the TCP port a passive peer listens on when none is given.
const DefaultPort = 9000

// ChannelError reports a failure to establish the TCP channel.
type ChannelError struct {
	// Op is "listen", "accept" or "dial".
	Op   string
	Addr string
	Err  error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// ListenAddress returns the listen address for port. An empty port selects
// DefaultPort.
func ListenAddress(port string) string {
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	return net.JoinHostPort("", port)
}

// DialAddress joins host and port into a dial address.
func DialAddress(host, port string) string {
	return net.JoinHostPort(host, port)
}

// NewConnectionID returns a fresh identifier for protocol log events.
func NewConnectionID() string {
	return uuid.New().String()
}

// Acceptor accepts exactly one inbound connection.
type Acceptor struct {
	ln        net.Listener
	addr      string
	closeOnce sync.Once
}

// Listen binds a TCP listener on address.
func Listen(address string) (*Acceptor, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, &ChannelError{Op: "listen", Addr: address, Err: err}
	}
	return &Acceptor{ln: ln, addr: address}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Accept waits for one peer, then closes the listener. Cancelling ctx
// aborts the wait.
func (a *Acceptor) Accept(ctx context.Context) (net.Conn, error) {
	defer a.Close()

	stop := context.AfterFunc(ctx, func() { a.Close() })
	defer stop()

	conn, err := a.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ChannelError{Op: "accept", Addr: a.addr, Err: err}
	}
	return conn, nil
}

// Close releases the listener. It is safe to call more than once.
func (a *Acceptor) Close() error {
	var err error
	a.closeOnce.Do(func() { err = a.ln.Close() })
	return err
}

// ListenAndAccept binds address and returns the first connection accepted.
func ListenAndAccept(ctx context.Context, address string) (net.Conn, error) {
	a, err := Listen(address)
	if err != nil {
		return nil, err
	}
	return a.Accept(ctx)
}

// Connect dials a passive peer at address. No timeout is applied beyond
// what ctx carries, and failures are not retried.
func Connect(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &ChannelError{Op: "dial", Addr: address, Err: err}
	}
	return conn, nil
}
