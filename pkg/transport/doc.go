// Package transport carries two-party messages over a byte stream.
//
// Each message travels as one frame:
//
//	┌──────────────┬─────────────────────────────┐
//	│ length (4B)  │ body (length bytes, CBOR)   │
//	│ big-endian   │                             │
//	└──────────────┴─────────────────────────────┘
//
// A stream that ends exactly on a frame boundary is a clean end-of-stream.
// A stream that ends inside a frame is an error.
//
// The package also provides the stream plumbing used to set up a two-party
// connection: Dial with exponential backoff, AcceptOne for the listening
// side, and Pipe for in-memory peers.
package transport
