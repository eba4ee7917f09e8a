package wire

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for message bodies.
// Configured for deterministic encoding so identical bodies produce identical frames.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for the default reader options.
var decMode cbor.DecMode

// decModes caches decoder modes per ReaderOptions value.
var decModes sync.Map

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decMode, err = decModeFor(DefaultReaderOptions())
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// decModeFor returns the decoder mode enforcing the limits in opts.
func decModeFor(opts ReaderOptions) (cbor.DecMode, error) {
	opts = opts.withDefaults()
	if dm, ok := decModes.Load(opts); ok {
		return dm.(cbor.DecMode), nil
	}

	// Lenient on duplicate keys for forward compatibility, strict on limits.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxNestedLevels:   opts.NestingLimit,
		MaxArrayElements:  opts.MaxArrayElements,
		MaxMapPairs:       opts.MaxMapPairs,
	}
	dm, err := decOpts.DecMode()
	if err != nil {
		return nil, fmt.Errorf("invalid reader options: %w", err)
	}
	actual, _ := decModes.LoadOrStore(opts, dm)
	return actual.(cbor.DecMode), nil
}
