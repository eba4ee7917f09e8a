package twoparty

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/twoparty-go/pkg/transport"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

func TestConnectReturnsConnectionOnce(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	defer net.Close()

	first := net.Connect(wire.SideClient)
	require.NotNil(t, first)

	for i := 0; i < 3; i++ {
		assert.Nil(t, net.Connect(wire.SideClient))
	}
	// The peer argument is not checked.
	assert.Nil(t, net.Connect(wire.SideServer))
}

func TestAcceptResolvesOnceThenNever(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	defer net.Close()

	first := net.Accept()
	require.True(t, first.Ready(), "first accept must resolve immediately")
	conn, err := first.Result()
	require.NoError(t, err)
	require.NotNil(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = net.Accept().Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectAndAcceptShareOneSlot(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	defer net.Close()

	require.NotNil(t, net.Connect(wire.SideClient))
	notResolved(t, net.Accept(), 20*time.Millisecond)

	other := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	defer other.Close()

	_, err := wait(t, other.Accept())
	require.NoError(t, err)
	assert.Nil(t, other.Connect(wire.SideClient))
}

func TestOnDisconnectBeforeAndAfterClose(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	conn := net.Connect(wire.SideClient)

	before1 := net.OnDisconnect()
	before2 := net.OnDisconnect()
	notResolved(t, before1, 20*time.Millisecond)
	assert.False(t, before2.Ready())

	require.NoError(t, conn.Close())

	_, err := wait(t, before1)
	assert.NoError(t, err)
	_, err = wait(t, before2)
	assert.NoError(t, err)

	after := net.OnDisconnect()
	assert.True(t, after.Ready())
	_, err = after.Result()
	assert.NoError(t, err)
}

func TestOnDisconnectFiresOnce(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	conn := net.Connect(wire.SideClient)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.NoError(t, net.Close())

	assert.False(t, net.disconnect.Fire(), "signal fired more than once")
}

func TestNetworkCloseWithoutHandOut(t *testing.T) {
	net := NewVatNetwork(bytes.NewReader(nil), io.Discard, Options{})
	done := net.OnDisconnect()

	require.NoError(t, net.Close())

	_, err := wait(t, done)
	assert.NoError(t, err)
	assert.Nil(t, net.Connect(wire.SideClient))
	notResolved(t, net.Accept(), 20*time.Millisecond)
}

func TestRoundTrip(t *testing.T) {
	type record struct {
		Name  string            `cbor:"name"`
		Tags  []string          `cbor:"tags"`
		Attrs map[string]uint64 `cbor:"attrs"`
		Blob  []byte            `cbor:"blob"`
	}
	want := record{
		Name:  "answer",
		Tags:  []string{"a", "b"},
		Attrs: map[string]uint64{"id": 42, "epoch": 7},
		Blob:  []byte{0, 1, 2, 0xff},
	}

	server, client := newPair(t)
	sc, err := wait(t, server.Accept())
	require.NoError(t, err)
	cc := client.Connect(wire.SideServer)

	recv := sc.ReceiveIncomingMessage()
	out := cc.NewOutgoingMessage(8)
	body, err := out.Body()
	require.NoError(t, err)
	require.NoError(t, body.Set(want))
	sent := out.Send()

	in, err := wait(t, recv)
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, out.SizeInWords(), in.SizeInWords())

	root, err := in.Body()
	require.NoError(t, err)
	var got record
	require.NoError(t, root.Decode(&got))
	assert.Equal(t, want, got)

	_, err = wait(t, sent)
	assert.NoError(t, err)
}

func TestEndToEnd(t *testing.T) {
	a, b := transport.Pipe()
	netA := NewVatNetwork(a, a, Options{Side: wire.SideServer})
	netB := NewVatNetwork(b, b, Options{Side: wire.SideClient})

	connA, err := wait(t, netA.Accept())
	require.NoError(t, err)
	connB := netB.Connect(wire.SideServer)
	require.NotNil(t, connB)

	disconnectedA := netA.OnDisconnect()
	disconnectedB := netB.OnDisconnect()

	recv := connB.ReceiveIncomingMessage()
	sendValue(t, connA, point{X: 1})

	in, err := wait(t, recv)
	require.NoError(t, err)
	require.NotNil(t, in)
	root, err := in.Body()
	require.NoError(t, err)
	var got point
	require.NoError(t, root.Decode(&got))
	assert.Equal(t, 1, got.X)

	// Dropping A ends the stream for B and fires A's disconnect.
	require.NoError(t, connA.Close())
	_, err = wait(t, disconnectedA)
	assert.NoError(t, err)

	in, err = wait(t, connB.ReceiveIncomingMessage())
	assert.NoError(t, err)
	assert.Nil(t, in)

	// B's disconnect is tied to B's own connection being closed, not to
	// the peer ending the stream. Seeing end-of-stream is the engine's cue
	// to close B, and only then does the signal fire.
	assert.False(t, disconnectedB.Ready())
	require.NoError(t, connB.Close())
	_, err = wait(t, disconnectedB)
	assert.NoError(t, err)
}
