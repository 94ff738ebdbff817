package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAcceptConnect(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := a.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err := Connect(ctx, a.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	c, s := NewCodec(client), NewCodec(server)
	require.NoError(t, c.SendText("over tcp"))
	got, err := s.ReceiveText()
	require.NoError(t, err)
	assert.Equal(t, "over tcp", got)

	// Only one peer is served: the listener is gone after the first accept.
	_, err = net.DialTimeout("tcp", a.Addr().String(), time.Second)
	assert.Error(t, err)
}

func TestAcceptCancelled(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = a.Accept(ctx)
	var ce *ChannelError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "accept", ce.Op)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListenAddressInUse(t *testing.T) {
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()

	_, err = Listen(a.Addr().String())
	var ce *ChannelError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "listen", ce.Op)
}

func TestConnectRefused(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	a, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := a.Addr().String()
	require.NoError(t, a.Close())

	_, err = Connect(context.Background(), addr)
	var ce *ChannelError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "dial", ce.Op)
	assert.Equal(t, addr, ce.Addr)
	assert.Contains(t, err.Error(), "dial "+addr)
}

func TestAddresses(t *testing.T) {
	assert.Equal(t, ":9000", ListenAddress(""))
	assert.Equal(t, ":7000", ListenAddress("7000"))
	assert.Equal(t, "example.org:9000", DialAddress("example.org", "9000"))
	assert.Equal(t, "[::1]:9000", DialAddress("::1", "9000"))
	assert.NotEqual(t, NewConnectionID(), NewConnectionID())
}
