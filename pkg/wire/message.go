package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// nullBody is the encoding of an unset root.
var nullBody = []byte{0xf6}

// Message errors.
var (
	// ErrNoRoot indicates a message without a well-formed root value.
	ErrNoRoot = errors.New("message has no valid root")
)

// DecodeError reports a malformed or root-less message body.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AnyPointer is a read-only view of a message root.
// It stays valid as long as the message it was obtained from.
type AnyPointer struct {
	data []byte
	dm   cbor.DecMode
}

// Decode decodes the root into v.
func (p AnyPointer) Decode(v any) error {
	if err := p.dm.Unmarshal(p.data, v); err != nil {
		return &DecodeError{Op: "body", Err: err}
	}
	return nil
}

// IsNull reports whether the root is unset (null or undefined).
func (p AnyPointer) IsNull() bool {
	return len(p.data) == 1 && (p.data[0] == 0xf6 || p.data[0] == 0xf7)
}

// Raw returns the encoded root. The slice aliases message memory.
func (p AnyPointer) Raw() []byte {
	return p.data
}

// MessageReader is an immutable decoded message.
type MessageReader struct {
	data []byte
	dm   cbor.DecMode
}

// NewMessageReader wraps an encoded body received from the wire.
// Limits in opts are enforced when the root is accessed.
func NewMessageReader(data []byte, opts ReaderOptions) (*MessageReader, error) {
	dm, err := decModeFor(opts)
	if err != nil {
		return nil, err
	}
	return &MessageReader{data: data, dm: dm}, nil
}

// Root returns the message root, or a *DecodeError if the body is not a
// single well-formed value within the reader limits.
func (m *MessageReader) Root() (AnyPointer, error) {
	if len(m.data) == 0 {
		return AnyPointer{}, &DecodeError{Op: "root", Err: ErrNoRoot}
	}
	if err := m.dm.Wellformed(m.data); err != nil {
		return AnyPointer{}, &DecodeError{Op: "root", Err: fmt.Errorf("%w: %v", ErrNoRoot, err)}
	}
	return AnyPointer{data: m.data, dm: m.dm}, nil
}

// Size returns the encoded body size in bytes.
func (m *MessageReader) Size() int {
	return len(m.data)
}

// SizeInWords returns the encoded body size in words.
func (m *MessageReader) SizeInWords() uint64 {
	return SizeInWords(len(m.data))
}

// MessageBuilder is a mutable message. Its buffer is kept across Reset so a
// builder handed back after a send can be refilled without reallocating.
type MessageBuilder struct {
	buf bytes.Buffer
}

// NewMessageBuilder creates an empty builder. firstSegmentWords preallocates
// buffer space and is only a performance hint.
func NewMessageBuilder(firstSegmentWords uint32) *MessageBuilder {
	m := &MessageBuilder{}
	if firstSegmentWords > 0 {
		m.buf.Grow(int(firstSegmentWords) * WordSize)
	}
	return m
}

// Root returns a mutable handle on the message root.
func (m *MessageBuilder) Root() (AnyPointerBuilder, error) {
	if m.buf.Len() > 0 {
		if err := decMode.Wellformed(m.buf.Bytes()); err != nil {
			return AnyPointerBuilder{}, &DecodeError{Op: "builder root", Err: err}
		}
	}
	return AnyPointerBuilder{m: m}, nil
}

// RootAsReader returns a read-only view of the current root.
func (m *MessageBuilder) RootAsReader() (AnyPointer, error) {
	root, err := m.Root()
	if err != nil {
		return AnyPointer{}, err
	}
	return root.AsReader(), nil
}

// Reset clears the root, keeping the allocated buffer.
func (m *MessageBuilder) Reset() {
	m.buf.Reset()
}

// Bytes returns the encoded body. An unset root encodes as null.
func (m *MessageBuilder) Bytes() []byte {
	if m.buf.Len() == 0 {
		return nullBody
	}
	return m.buf.Bytes()
}

// SizeInWords returns the encoded body size in words.
func (m *MessageBuilder) SizeInWords() uint64 {
	return SizeInWords(len(m.Bytes()))
}

// AnyPointerBuilder is a mutable handle on a message root.
type AnyPointerBuilder struct {
	m *MessageBuilder
}

// Set encodes v as the new root, replacing any previous content.
func (b AnyPointerBuilder) Set(v any) error {
	b.m.buf.Reset()
	if err := encMode.NewEncoder(&b.m.buf).Encode(v); err != nil {
		b.m.buf.Reset()
		return fmt.Errorf("failed to encode root: %w", err)
	}
	return nil
}

// SetRaw sets an already encoded value as the root.
func (b AnyPointerBuilder) SetRaw(data []byte) error {
	if err := decMode.Wellformed(data); err != nil {
		return &DecodeError{Op: "raw root", Err: err}
	}
	b.m.buf.Reset()
	b.m.buf.Write(data)
	return nil
}

// Clear unsets the root.
func (b AnyPointerBuilder) Clear() {
	b.m.buf.Reset()
}

// AsReader returns a read-only view of the root as currently built.
func (b AnyPointerBuilder) AsReader() AnyPointer {
	return AnyPointer{data: b.m.Bytes(), dm: decMode}
}
