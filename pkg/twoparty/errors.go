package twoparty

import "errors"

// Connection errors.
var (
	// ErrReadInFlight indicates a receive was requested while another one is
	// still outstanding on the same connection.
	ErrReadInFlight = errors.New("read already in flight")

	// ErrConnectionClosed indicates the connection was closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrMessageSent indicates Send was called twice on one outgoing message.
	ErrMessageSent = errors.New("message already sent")
)
