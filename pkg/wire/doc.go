// Package wire defines the message representation exchanged by the two-party
// transport.
//
// A message body is a single CBOR (RFC 8949) value, the message root. The
// transport never interprets the root; it only frames, writes and reads it.
//
// # Builders and Readers
//
// Outgoing messages are built with a MessageBuilder. The builder keeps its
// buffer across Reset, so the builder handed back after a send can be reused
// for the next message without reallocating.
//
// Incoming messages are MessageReaders: immutable views over the received
// bytes. The root is validated lazily, when it is first accessed, against
// the ReaderOptions the message was read with. A body that is empty, not
// well-formed, or exceeds the nesting or container limits has no valid root
// and yields a *DecodeError.
//
// # Sizes
//
// Sizes are accounted in 8-byte words. ReaderOptions.TraversalLimitWords
// bounds the size of a single frame.
package wire
