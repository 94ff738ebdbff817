package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/certchat/certchat-go/pkg/transport"
)

func tcpPair(t *testing.T) (passive, active net.Conn) {
	t.Helper()
	a, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := a.Accept(ctx)
		if err != nil {
			t.Errorf("accept: %v", err)
		}
		accepted <- conn
	}()
	active, err = transport.Connect(ctx, a.Addr().String())
	require.NoError(t, err)
	passive = <-accepted
	require.NotNil(t, passive)
	t.Cleanup(func() {
		passive.Close()
		active.Close()
	})
	return passive, active
}

func validatedPair(t *testing.T) (p, a *Session) {
	t.Helper()
	pc, ac := tcpPair(t)
	p, a = New(pc, Passive, nil), New(ac, Active, nil)
	require.NoError(t, p.Authenticate(nil))
	require.NoError(t, a.Authenticate(nil))
	return p, a
}

// chanObserver forwards inbound traffic to channels.
type chanObserver struct {
	messages chan string
	closed   chan struct{}
	once     sync.Once
}

func newChanObserver() *chanObserver {
	return &chanObserver{messages: make(chan string, 1024), closed: make(chan struct{})}
}

func (o *chanObserver) MessageReceived(text string) { o.messages <- text }
func (o *chanObserver) ChannelClosed()              { o.once.Do(func() { close(o.closed) }) }

func (o *chanObserver) next(t *testing.T) string {
	t.Helper()
	select {
	case m := <-o.messages:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func (o *chanObserver) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-o.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ChannelClosed")
	}
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) MessageReceived(text string) { m.Called(text) }
func (m *mockObserver) ChannelClosed()              { m.Called() }

func startPump(ctx context.Context, p *Pump) <-chan error {
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not stop")
		return nil
	}
}

func TestPumpRequiresValidation(t *testing.T) {
	pc, _ := tcpPair(t)
	s := New(pc, Passive, nil)
	err := NewPump(s, NewQueue(), newChanObserver(), PumpConfig{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)
}

func TestSessionAuthenticateOnce(t *testing.T) {
	pc, _ := tcpPair(t)
	s := New(pc, Active, nil)
	assert.False(t, s.Validated())
	require.NoError(t, s.Authenticate(nil))
	assert.True(t, s.Validated())
	assert.ErrorIs(t, s.Authenticate(nil), ErrAlreadyValidated)
	assert.True(t, s.Validated())
	assert.Equal(t, Active, s.Role())
	assert.NotEmpty(t, s.ID())
	assert.NotEmpty(t, s.RemoteAddr())
}

func TestPumpDeliversInOrder(t *testing.T) {
	ps, as := validatedPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aq := NewQueue()
	bObs := newChanObserver()
	aDone := startPump(ctx, NewPump(as, aq, newChanObserver(), PumpConfig{}))
	bDone := startPump(ctx, NewPump(ps, NewQueue(), bObs, PumpConfig{}))

	want := []string{"hello", "", "grüße", "last"}
	for _, s := range want {
		require.NoError(t, aq.Push(s))
	}
	for _, w := range want {
		assert.Equal(t, w, bObs.next(t))
	}

	// Closing the queue drains it and ends the active side cleanly.
	aq.Close()
	require.NoError(t, waitErr(t, aDone))

	// The passive side sees the channel close and keeps running.
	bObs.waitClosed(t)
	select {
	case err := <-bDone:
		t.Fatalf("passive pump stopped on peer close: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.NoError(t, waitErr(t, bDone))
}

func TestPumpFullDuplex(t *testing.T) {
	ps, as := validatedPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pq, aq := NewQueue(), NewQueue()
	pObs, aObs := newChanObserver(), newChanObserver()
	pDone := startPump(ctx, NewPump(ps, pq, pObs, PumpConfig{}))
	aDone := startPump(ctx, NewPump(as, aq, aObs, PumpConfig{}))

	const n = 200
	go func() {
		for i := 0; i < n; i++ {
			_ = pq.Push(fmt.Sprintf("p%d", i))
		}
	}()
	go func() {
		for i := 0; i < n; i++ {
			_ = aq.Push(fmt.Sprintf("a%d", i))
		}
	}()

	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("a%d", i), pObs.next(t))
		assert.Equal(t, fmt.Sprintf("p%d", i), aObs.next(t))
	}

	cancel()
	assert.NoError(t, waitErr(t, pDone))
	assert.NoError(t, waitErr(t, aDone))
}

func TestPumpWithMockObserver(t *testing.T) {
	ps, as := validatedPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan struct{}, 2)
	obs := &mockObserver{}
	obs.On("MessageReceived", "ping").Return().Run(func(mock.Arguments) { got <- struct{}{} }).Once()
	obs.On("ChannelClosed").Return().Run(func(mock.Arguments) { got <- struct{}{} }).Once()

	done := startPump(ctx, NewPump(ps, NewQueue(), obs, PumpConfig{}))

	peer := as.Codec()
	require.NoError(t, peer.SendText("ping"))
	require.NoError(t, as.Close())

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatal("observer not called")
		}
	}
	cancel()
	require.NoError(t, waitErr(t, done))
	obs.AssertExpectations(t)
}

func TestPumpInboundFailureIsFatal(t *testing.T) {
	pc, ac := tcpPair(t)
	s := New(pc, Passive, nil)
	require.NoError(t, s.Authenticate(nil))

	done := startPump(context.Background(), NewPump(s, NewQueue(), newChanObserver(), PumpConfig{}))

	// A text frame that is not valid UTF-8.
	_, err := ac.Write([]byte{0x00, 0x02, 0xc3, 0x28})
	require.NoError(t, err)

	err = waitErr(t, done)
	var we *WorkerError
	require.True(t, errors.As(err, &we), "got %v", err)
	assert.Equal(t, WorkerInbound, we.Worker)
	assert.ErrorIs(t, err, transport.ErrInvalidText)
}

func TestPumpOutboundFailureIsFatal(t *testing.T) {
	ps, as := validatedPair(t)

	q := NewQueue()
	obs := newChanObserver()
	done := startPump(context.Background(), NewPump(as, q, obs, PumpConfig{}))

	require.NoError(t, ps.Close())
	obs.waitClosed(t)

	// The first write after the peer is gone may still be accepted locally;
	// keep writing until the reset surfaces.
	var err error
	for i := 0; ; i++ {
		_ = q.Push(fmt.Sprintf("line %d", i))
		select {
		case err = <-done:
		case <-time.After(10 * time.Millisecond):
			if i < 500 {
				continue
			}
			t.Fatal("outbound write never failed")
		}
		break
	}

	var we *WorkerError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, WorkerOutbound, we.Worker)
	assert.Contains(t, we.Error(), "outbound worker")
}
