package twoparty

import (
	"sync/atomic"

	"github.com/mash-protocol/twoparty-go/pkg/async"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// IncomingMessage is a received message. It is read-only.
type IncomingMessage struct {
	msg *wire.MessageReader
}

// Body returns the message root. It fails with a *wire.DecodeError when the
// message has no well-formed root.
func (m *IncomingMessage) Body() (wire.AnyPointer, error) {
	return m.msg.Root()
}

// SizeInWords returns the encoded body size in 8-byte words.
func (m *IncomingMessage) SizeInWords() uint64 {
	return m.msg.SizeInWords()
}

// OutgoingMessage is a message being built for sending on a connection.
type OutgoingMessage struct {
	conn *Connection
	msg  *wire.MessageBuilder
	sent atomic.Bool
}

// Body returns the mutable message root.
func (m *OutgoingMessage) Body() (wire.AnyPointerBuilder, error) {
	return m.msg.Root()
}

// BodyAsReader returns a read-only view of the root as built so far.
func (m *OutgoingMessage) BodyAsReader() (wire.AnyPointer, error) {
	return m.msg.RootAsReader()
}

// SizeInWords returns the encoded body size in 8-byte words.
func (m *OutgoingMessage) SizeInWords() uint64 {
	return m.msg.SizeInWords()
}

// Send queues the message behind every earlier send on the connection.
// The future resolves to the builder once the message is written; the
// builder may then be Reset and reused. A message can be sent once.
func (m *OutgoingMessage) Send() *async.Future[*wire.MessageBuilder] {
	if !m.sent.CompareAndSwap(false, true) {
		return async.Failed[*wire.MessageBuilder](ErrMessageSent)
	}
	return m.conn.enqueue(m.msg)
}
