package transport

import (
	"io"
	"net"
	"sync"
)

// HalfCloser is implemented by streams whose write direction can be closed
// independently, letting the peer observe end-of-stream while reads continue.
// *net.TCPConn and *tls.Conn implement it.
type HalfCloser interface {
	CloseWrite() error
}

// PipeEnd is one end of an in-memory duplex stream created by Pipe.
// Writes block until the peer reads them.
type PipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter

	closeOnce sync.Once
}

// Pipe creates a connected pair of in-memory duplex streams.
// Bytes written to one end are read from the other.
func Pipe() (*PipeEnd, *PipeEnd) {
	rAB, wAB := io.Pipe()
	rBA, wBA := io.Pipe()

	a := &PipeEnd{r: rBA, w: wAB}
	b := &PipeEnd{r: rAB, w: wBA}
	return a, b
}

// Read reads bytes written by the peer.
func (p *PipeEnd) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write writes bytes for the peer to read.
func (p *PipeEnd) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// CloseWrite signals end-of-stream to the peer. Reads keep working.
func (p *PipeEnd) CloseWrite() error {
	return p.w.Close()
}

// Close closes both directions. The peer's reads return io.EOF and its
// writes return io.ErrClosedPipe.
func (p *PipeEnd) Close() error {
	p.closeOnce.Do(func() {
		p.w.Close()
		p.r.CloseWithError(io.ErrClosedPipe)
	})
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ io.ReadWriteCloser = (*PipeEnd)(nil)
	_ HalfCloser         = (*PipeEnd)(nil)
	_ HalfCloser         = (*net.TCPConn)(nil)
)
