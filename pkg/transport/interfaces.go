package transport

import (
	"io"

	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by FramedStream.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// FramedStream pairs a frame reader and a frame writer over the two halves
// of one duplex stream.
type FramedStream struct {
	*FrameReader
	*FrameWriter
}

// NewFramedStream wraps the read and write halves of a stream.
func NewFramedStream(r io.Reader, w io.Writer) *FramedStream {
	return &FramedStream{
		FrameReader: NewFrameReader(r),
		FrameWriter: NewFrameWriter(w),
	}
}

// SetLogger configures protocol logging for both directions.
func (s *FramedStream) SetLogger(logger log.Logger, connID string, side wire.Side) {
	s.FrameReader.SetLogger(logger, connID, side)
	s.FrameWriter.SetLogger(logger, connID, side)
}

// ReadMessage reads one message, returning (nil, nil) at a clean end-of-stream.
func (s *FramedStream) ReadMessage(opts wire.ReaderOptions) (*wire.MessageReader, error) {
	return TryReadMessage(s.FrameReader, opts)
}

// WriteMessage writes m as one frame.
func (s *FramedStream) WriteMessage(m *wire.MessageBuilder) error {
	return WriteMessage(s.FrameWriter, m)
}

// Compile-time interface satisfaction check.
var _ FrameReadWriter = (*FramedStream)(nil)
