package twoparty

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/twoparty-go/pkg/async"
	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/transport"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// ConnectionState is the lifecycle state of a Connection.
type ConnectionState int

const (
	// StateOpen indicates a usable connection.
	StateOpen ConnectionState = iota

	// StateClosed indicates a closed connection. It is final.
	StateClosed
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection is the single peer relationship of a two-party network.
//
// Reads are exclusive: at most one ReceiveIncomingMessage is outstanding.
// Writes go through a pipeline in which each step waits for the previous one.
type Connection struct {
	id     string
	side   wire.Side
	opts   wire.ReaderOptions
	logger *slog.Logger
	plog   log.Logger

	r      io.Reader
	w      io.Writer
	stream *transport.FramedStream

	mu           sync.Mutex
	state        ConnectionState
	readInFlight bool
	readEOF      bool
	readErr      error

	// tail completes when every write queued so far has been attempted.
	// It fails with the first write error.
	tail *async.Future[struct{}]

	closing    *async.Signal
	disconnect *async.Signal

	inSeq  atomic.Uint64
	outSeq atomic.Uint64
}

func newConnection(r io.Reader, w io.Writer, opts Options, disconnect *async.Signal) *Connection {
	id := opts.ConnectionID
	if id == "" {
		id = uuid.New().String()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Connection{
		id:         id,
		side:       opts.Side,
		opts:       opts.Reader,
		logger:     logger.With("conn_id", id, "side", opts.Side.String()),
		plog:       opts.ProtocolLogger,
		r:          r,
		w:          w,
		stream:     transport.NewFramedStream(r, w),
		state:      StateOpen,
		tail:       async.Resolved(struct{}{}),
		closing:    async.NewSignal(),
		disconnect: disconnect,
	}
	if c.plog != nil {
		c.stream.SetLogger(c.plog, id, opts.Side)
	}

	c.logState("", StateOpen.String(), "")
	return c
}

// ID returns the connection ID used in logs.
func (c *Connection) ID() string {
	return c.id
}

// LocalSide returns the local vat's side.
func (c *Connection) LocalSide() wire.Side {
	return c.side
}

// PeerVatID returns the side of the vat on the other end.
func (c *Connection) PeerVatID() wire.Side {
	return c.side.Peer()
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NewOutgoingMessage creates an empty message bound to this connection.
// firstSegmentWords preallocates space and is only a hint.
func (c *Connection) NewOutgoingMessage(firstSegmentWords uint32) *OutgoingMessage {
	return &OutgoingMessage{
		conn: c,
		msg:  wire.NewMessageBuilder(firstSegmentWords),
	}
}

// ReuseOutgoingMessage wraps a builder returned by an earlier Send in a new
// outgoing message. The builder is reset and keeps its buffer.
func (c *Connection) ReuseOutgoingMessage(msg *wire.MessageBuilder) *OutgoingMessage {
	msg.Reset()
	return &OutgoingMessage{
		conn: c,
		msg:  msg,
	}
}

// ReceiveIncomingMessage reads the next message. The future resolves to nil
// when the peer ended the stream cleanly.
//
// Only one receive may be outstanding. A concurrent call fails with
// ErrReadInFlight. Abandoning the returned future does not stop the read: a
// message read after the caller stopped waiting is lost, and the connection
// must not be used for further receives.
func (c *Connection) ReceiveIncomingMessage() *async.Future[*IncomingMessage] {
	c.mu.Lock()
	switch {
	case c.state == StateClosed:
		c.mu.Unlock()
		return async.Failed[*IncomingMessage](ErrConnectionClosed)
	case c.readInFlight:
		c.mu.Unlock()
		c.logger.Error("concurrent receive rejected")
		return async.Failed[*IncomingMessage](ErrReadInFlight)
	case c.readErr != nil:
		err := c.readErr
		c.mu.Unlock()
		return async.Failed[*IncomingMessage](err)
	case c.readEOF:
		c.mu.Unlock()
		return async.Resolved[*IncomingMessage](nil)
	}
	c.readInFlight = true
	c.mu.Unlock()

	f, res := async.New[*IncomingMessage]()
	go c.read(res)
	return f
}

func (c *Connection) read(res *async.Resolver[*IncomingMessage]) {
	msg, err := c.stream.ReadMessage(c.opts)
	if err != nil && c.closing.Fired() {
		err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	c.mu.Lock()
	c.readInFlight = false
	switch {
	case err != nil:
		c.readErr = err
	case msg == nil:
		c.readEOF = true
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("receive failed", "error", err)
		c.logError("receive", err)
		res.Reject(err)
		return
	}
	if msg == nil {
		c.logger.Debug("peer ended stream")
		res.Resolve(nil)
		return
	}

	c.logMessage(log.DirectionIn, c.inSeq.Add(1), msg.SizeInWords(), nil)
	res.Resolve(&IncomingMessage{msg: msg})
}

// enqueue appends one write step to the pipeline and returns the future of
// the sent builder.
func (c *Connection) enqueue(msg *wire.MessageBuilder) *async.Future[*wire.MessageBuilder] {
	sent, sentRes := async.New[*wire.MessageBuilder]()
	step, stepRes := async.New[struct{}]()

	c.mu.Lock()
	prev := c.tail
	c.tail = step
	c.mu.Unlock()

	go c.write(prev, stepRes, msg, sentRes)
	return sent
}

func (c *Connection) write(prev *async.Future[struct{}], step *async.Resolver[struct{}], msg *wire.MessageBuilder, sent *async.Resolver[*wire.MessageBuilder]) {
	fail := func(err error) {
		step.Reject(err)
		sent.Reject(err)
	}

	select {
	case <-prev.Done():
	case <-c.closing.Done():
		fail(ErrConnectionClosed)
		return
	}
	if c.closing.Fired() {
		fail(ErrConnectionClosed)
		return
	}
	if _, err := prev.Result(); err != nil {
		fail(err)
		return
	}

	start := time.Now()
	if err := c.stream.WriteMessage(msg); err != nil {
		if c.closing.Fired() {
			err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		c.logger.Debug("send failed", "error", err)
		c.logError("send", err)
		fail(err)
		return
	}
	latency := time.Since(start)

	c.logMessage(log.DirectionOut, c.outSeq.Add(1), msg.SizeInWords(), &latency)
	step.Resolve(struct{}{})
	sent.Resolve(msg)
}

// Shutdown waits for every queued write to be attempted and then closes the
// write direction of the stream, so the peer reads a clean end-of-stream.
// Write failures do not fail Shutdown. Sends issued after Shutdown never
// complete until the connection is closed.
func (c *Connection) Shutdown() *async.Future[struct{}] {
	c.mu.Lock()
	prev := c.tail
	c.tail = async.Never[struct{}]()
	c.mu.Unlock()

	f, res := async.New[struct{}]()
	go func() {
		select {
		case <-prev.Done():
		case <-c.closing.Done():
		}
		// Both cases may be ready; a closed stream has nothing left to end.
		if c.closing.Fired() {
			res.Resolve(struct{}{})
			return
		}
		_, writeErr := prev.Result()

		if hc, ok := c.w.(transport.HalfCloser); ok {
			if err := hc.CloseWrite(); err != nil {
				c.logger.Debug("half-close failed", "error", err)
				if writeErr == nil && !c.closing.Fired() {
					res.Reject(fmt.Errorf("close write: %w", err))
					return
				}
			}
		}
		c.logger.Debug("write side shut down")
		res.Resolve(struct{}{})
	}()
	return f
}

// Close ends the connection. Pending writes that have not started fail with
// ErrConnectionClosed, both stream halves are closed when they support it,
// and the disconnect signal fires. Close is idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	c.closing.Fire()

	var errs []error
	if wc, ok := c.w.(io.Closer); ok {
		errs = append(errs, ignoreClosed(wc.Close()))
	}
	if rc, ok := c.r.(io.Closer); ok {
		errs = append(errs, ignoreClosed(rc.Close()))
	}

	c.logState(StateOpen.String(), StateClosed.String(), "closed")
	c.logger.Debug("connection closed")
	c.disconnect.Fire()

	return errors.Join(errs...)
}

// ignoreClosed drops the error of closing a stream that is already closed,
// which happens when both halves are the same stream.
func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, fs.ErrClosed) {
		return nil
	}
	return err
}

func (c *Connection) logState(oldState, newState, reason string) {
	if c.plog == nil {
		return
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerConnection,
		Category:     log.CategoryState,
		LocalSide:    c.side,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Connection) logMessage(dir log.Direction, seq, words uint64, latency *time.Duration) {
	if c.plog == nil {
		return
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerConnection,
		Category:     log.CategoryMessage,
		LocalSide:    c.side,
		Message: &log.MessageEvent{
			Sequence:  seq,
			SizeWords: words,
			Latency:   latency,
		},
	})
}

func (c *Connection) logError(op string, err error) {
	if c.plog == nil {
		return
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerConnection,
		Category:     log.CategoryError,
		LocalSide:    c.side,
		Error: &log.ErrorEventData{
			Layer:   log.LayerConnection,
			Message: err.Error(),
			Context: op,
		},
	})
}
