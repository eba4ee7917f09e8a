package twoparty

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mash-protocol/twoparty-go/pkg/async"
	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// VatNetwork is a network of exactly two vats. It holds one Connection and
// hands it out once, through either Connect or Accept.
type VatNetwork struct {
	mu   sync.Mutex
	conn *Connection

	// owned stays set after hand-out so Close can reach the connection.
	owned *Connection

	disconnect *async.Signal
	logger     *slog.Logger
	plog       log.Logger
}

// NewVatNetwork creates a network over the read and write halves of one
// duplex stream. Passing the same stream for both halves is fine.
func NewVatNetwork(r io.Reader, w io.Writer, opts Options) *VatNetwork {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.Logger = logger

	disconnect := async.NewSignal()
	conn := newConnection(r, w, opts, disconnect)

	return &VatNetwork{
		conn:       conn,
		owned:      conn,
		disconnect: disconnect,
		logger:     logger,
		plog:       opts.ProtocolLogger,
	}
}

// Connect returns the connection to peer the first time it is called and
// nil afterwards. There is only one peer, so peer is not checked.
func (n *VatNetwork) Connect(peer wire.Side) *Connection {
	conn := n.take()
	if conn == nil {
		n.logger.Debug("connect: no connection left", "peer", peer.String())
		return nil
	}
	n.logHandOut(conn, "connect")
	return conn
}

// Accept resolves immediately with the connection the first time it is
// called. Later calls return a future that never resolves: a two-party
// network has no second peer to accept.
func (n *VatNetwork) Accept() *async.Future[*Connection] {
	conn := n.take()
	if conn == nil {
		return async.Never[*Connection]()
	}
	n.logHandOut(conn, "accept")
	return async.Resolved(conn)
}

// OnDisconnect returns a future that resolves once the connection is
// closed. Every call returns an independent future over the same event.
func (n *VatNetwork) OnDisconnect() *async.Future[struct{}] {
	return n.disconnect.Branch()
}

// Close closes the connection, whether or not it was handed out.
func (n *VatNetwork) Close() error {
	n.mu.Lock()
	n.conn = nil
	conn := n.owned
	n.mu.Unlock()

	return conn.Close()
}

func (n *VatNetwork) take() *Connection {
	n.mu.Lock()
	defer n.mu.Unlock()
	conn := n.conn
	n.conn = nil
	return conn
}

func (n *VatNetwork) logHandOut(conn *Connection, how string) {
	n.logger.Debug("connection handed out", "conn_id", conn.ID(), "via", how)
	if n.plog == nil {
		return
	}
	n.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ID(),
		Layer:        log.LayerNetwork,
		Category:     log.CategoryState,
		LocalSide:    conn.LocalSide(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityNetwork,
			OldState: "HOLDING",
			NewState: "HANDED_OUT",
			Reason:   how,
		},
	})
}
