package transport

import (
	"io"

	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// TryReadMessage reads one framed message. It returns (nil, nil) when the
// stream ends cleanly before the next frame, which is how a peer that closed
// gracefully is distinguished from a failure.
func TryReadMessage(fr *FrameReader, opts wire.ReaderOptions) (*wire.MessageReader, error) {
	fr.SetMaxMessageSize(opts.MaxMessageSize())

	data, err := fr.ReadFrame()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wire.NewMessageReader(data, opts)
}

// WriteMessage writes m as one frame.
func WriteMessage(fw *FrameWriter, m *wire.MessageBuilder) error {
	return fw.WriteFrame(m.Bytes())
}
