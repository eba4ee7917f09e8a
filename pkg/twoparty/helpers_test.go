package twoparty

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/twoparty-go/pkg/async"
	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/transport"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

const testTimeout = 5 * time.Second

type point struct {
	X int `cbor:"x"`
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func wait[T any](t *testing.T, f *async.Future[T]) (T, error) {
	t.Helper()
	return f.Wait(testContext(t))
}

// notResolved asserts that f stays pending for d.
func notResolved[T any](t *testing.T, f *async.Future[T], d time.Duration) {
	t.Helper()
	select {
	case <-f.Done():
		t.Fatalf("future resolved, expected pending")
	case <-time.After(d):
	}
}

// newPair builds a server and a client network over an in-memory pipe.
func newPair(t *testing.T) (server, client *VatNetwork) {
	t.Helper()
	a, b := transport.Pipe()
	server = NewVatNetwork(a, a, Options{Side: wire.SideServer})
	client = NewVatNetwork(b, b, Options{Side: wire.SideClient})
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

// newTCPPair returns both ends of a loopback TCP connection.
func newTCPPair(t *testing.T) (server, client *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	dialed := make(chan net.Conn, 1)
	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			c = nil
		}
		dialed <- c
	}()

	accepted, err := transport.AcceptOne(testContext(t), ln)
	require.NoError(t, err)
	c := <-dialed
	require.NotNil(t, c, "dial failed")

	t.Cleanup(func() {
		accepted.Close()
		c.Close()
	})
	return accepted.(*net.TCPConn), c.(*net.TCPConn)
}

func sendValue(t *testing.T, c *Connection, v any) *async.Future[*wire.MessageBuilder] {
	t.Helper()
	out := c.NewOutgoingMessage(0)
	body, err := out.Body()
	require.NoError(t, err)
	require.NoError(t, body.Set(v))
	return out.Send()
}

// stubProtocolLogger records protocol events.
type stubProtocolLogger struct {
	mock.Mock

	mu     sync.Mutex
	logged []log.Event
}

func (l *stubProtocolLogger) Log(event log.Event) {
	l.mu.Lock()
	l.logged = append(l.logged, event)
	l.mu.Unlock()
	l.Called(event)
}

func (l *stubProtocolLogger) events() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.logged...)
}
