package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/certchat/certchat-go/pkg/log"
)

// Worker names used in WorkerError.
const (
	WorkerInbound  = "inbound"
	WorkerOutbound = "outbound"
)

// Pump errors.
var (
	// ErrNotValidated is returned by Run on a session whose handshake did
	// not authenticate the peer.
	ErrNotValidated = errors.New("session not validated")

	// ErrChannelClosed describes the peer closing its side of the channel.
	ErrChannelClosed = errors.New("channel closed by peer")
)

// WorkerError is a fatal I/O failure in one of the pump workers.
type WorkerError struct {
	Worker string
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s worker: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// Observer receives inbound traffic. Calls come from the inbound worker
// goroutine, one at a time.
type Observer interface {
	// MessageReceived is called once per text frame, in arrival order.
	MessageReceived(text string)

	// ChannelClosed is called once when the peer closes the stream.
	ChannelClosed()
}

// PumpConfig configures a Pump.
type PumpConfig struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// Pump runs the inbound and outbound workers of a validated session.
type Pump struct {
	sess     *Session
	queue    *Queue
	observer Observer
	config   PumpConfig

	stopping atomic.Bool
}

// NewPump returns a pump moving lines from queue to the peer and frames
// from the peer to observer.
func NewPump(sess *Session, queue *Queue, observer Observer, config PumpConfig) *Pump {
	return &Pump{sess: sess, queue: queue, observer: observer, config: config}
}

// Run starts both workers and waits for them.
//
// The peer closing its stream stops only the inbound worker. Run returns
// nil once the queue is closed and drained or ctx is cancelled; in both
// cases the connection is closed. A read or write failure in either worker
// closes the connection and is returned as a *WorkerError.
func (p *Pump) Run(ctx context.Context) error {
	if !p.sess.Validated() {
		return ErrNotValidated
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, p.shutdown)
	defer stop()

	p.sess.LogEvent(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			NewState: "RUNNING",
		},
	})

	g.Go(func() error { return p.inbound() })
	g.Go(func() error {
		err := p.outbound(gctx)
		if err == nil {
			p.shutdown()
		}
		return err
	})

	err := g.Wait()
	p.logStop(err)
	return err
}

// shutdown closes the connection, marking worker errors that follow as
// expected.
func (p *Pump) shutdown() {
	p.stopping.Store(true)
	_ = p.sess.Close()
}

func (p *Pump) inbound() error {
	codec := p.sess.Codec()
	for {
		text, err := codec.ReceiveText()
		if err != nil {
			if p.stopping.Load() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				p.debugLog("inbound stopped", "conn_id", p.sess.ID(), "reason", ErrChannelClosed)
				p.sess.LogEvent(log.Event{
					Direction: log.DirectionIn,
					Layer:     log.LayerSession,
					Category:  log.CategoryState,
					StateChange: &log.StateChangeEvent{
						Entity:   log.StateEntityConnection,
						OldState: "OPEN",
						NewState: "PEER_CLOSED",
						Reason:   ErrChannelClosed.Error(),
					},
				})
				p.observer.ChannelClosed()
				return nil
			}
			return &WorkerError{Worker: WorkerInbound, Err: err}
		}
		p.observer.MessageReceived(text)
	}
}

func (p *Pump) outbound(ctx context.Context) error {
	codec := p.sess.Codec()
	for {
		line, err := p.queue.Pop(ctx)
		if err != nil {
			// Cancelled or closed and drained.
			return nil
		}
		if err := codec.SendText(line); err != nil {
			if p.stopping.Load() {
				return nil
			}
			return &WorkerError{Worker: WorkerOutbound, Err: err}
		}
	}
}

func (p *Pump) logStop(err error) {
	sc := &log.StateChangeEvent{
		Entity:   log.StateEntitySession,
		OldState: "RUNNING",
		NewState: "STOPPED",
	}
	ev := log.Event{Layer: log.LayerSession, Category: log.CategoryState, StateChange: sc}
	if err != nil {
		sc.Reason = err.Error()
		var we *WorkerError
		if errors.As(err, &we) {
			p.sess.LogEvent(log.Event{
				Layer:    log.LayerSession,
				Category: log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerSession,
					Message: we.Err.Error(),
					Context: we.Worker,
				},
			})
		}
	}
	p.sess.LogEvent(ev)
	p.debugLog("pump stopped", "conn_id", p.sess.ID(), "error", err)
}

func (p *Pump) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}
