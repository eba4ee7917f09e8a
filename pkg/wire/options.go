package wire

import "fmt"

// Reader limit defaults.
const (
	// WordSize is the accounting unit for message sizes, in bytes.
	WordSize = 8

	// DefaultTraversalLimitWords bounds the size of a single message (64 MiB).
	DefaultTraversalLimitWords = 8 * 1024 * 1024

	// DefaultNestingLimit bounds how deeply a message body may nest.
	DefaultNestingLimit = 64

	// DefaultMaxArrayElements bounds the length of any array in a body.
	DefaultMaxArrayElements = 1 << 20

	// DefaultMaxMapPairs bounds the size of any map in a body.
	DefaultMaxMapPairs = 1 << 20

	// MaxTraversalLimitWords is the largest limit a 4-byte length prefix can express.
	MaxTraversalLimitWords = (1<<32 - 1) / WordSize
)

// ReaderOptions bounds the work done when decoding untrusted messages.
// Zero fields take the defaults.
type ReaderOptions struct {
	// TraversalLimitWords caps the size of one message, in 8-byte words.
	TraversalLimitWords uint64 `yaml:"traversal_limit_words"`

	// NestingLimit caps the nesting depth of a body.
	NestingLimit int `yaml:"nesting_limit"`

	// MaxArrayElements caps the element count of any array.
	MaxArrayElements int `yaml:"max_array_elements"`

	// MaxMapPairs caps the pair count of any map.
	MaxMapPairs int `yaml:"max_map_pairs"`
}

// DefaultReaderOptions returns the default decode limits.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		TraversalLimitWords: DefaultTraversalLimitWords,
		NestingLimit:        DefaultNestingLimit,
		MaxArrayElements:    DefaultMaxArrayElements,
		MaxMapPairs:         DefaultMaxMapPairs,
	}
}

func (o ReaderOptions) withDefaults() ReaderOptions {
	d := DefaultReaderOptions()
	if o.TraversalLimitWords == 0 {
		o.TraversalLimitWords = d.TraversalLimitWords
	}
	if o.NestingLimit == 0 {
		o.NestingLimit = d.NestingLimit
	}
	if o.MaxArrayElements == 0 {
		o.MaxArrayElements = d.MaxArrayElements
	}
	if o.MaxMapPairs == 0 {
		o.MaxMapPairs = d.MaxMapPairs
	}
	return o
}

// Validate checks the limits against what the codec can enforce.
func (o ReaderOptions) Validate() error {
	o = o.withDefaults()
	if o.TraversalLimitWords > MaxTraversalLimitWords {
		return fmt.Errorf("traversal limit %d words exceeds maximum %d", o.TraversalLimitWords, uint64(MaxTraversalLimitWords))
	}
	if _, err := decModeFor(o); err != nil {
		return err
	}
	return nil
}

// MaxMessageSize returns the traversal limit in bytes.
func (o ReaderOptions) MaxMessageSize() uint32 {
	o = o.withDefaults()
	if o.TraversalLimitWords > MaxTraversalLimitWords {
		o.TraversalLimitWords = MaxTraversalLimitWords
	}
	return uint32(o.TraversalLimitWords * WordSize)
}

// SizeInWords returns n bytes expressed in words, rounded up.
func SizeInWords(n int) uint64 {
	return (uint64(n) + WordSize - 1) / WordSize
}
