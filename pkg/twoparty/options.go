package twoparty

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// Options configures a VatNetwork and its connection.
type Options struct {
	// Side is the local vat's side.
	Side wire.Side `yaml:"side"`

	// Reader bounds decoding of received messages.
	Reader wire.ReaderOptions `yaml:"reader"`

	// ConnectionID identifies the connection in logs (default: random UUID).
	ConnectionID string `yaml:"connection_id"`

	// Logger receives operational logs (default: discard).
	Logger *slog.Logger `yaml:"-"`

	// ProtocolLogger receives protocol events (default: none).
	ProtocolLogger log.Logger `yaml:"-"`
}

// DefaultOptions returns the default options for the server side.
func DefaultOptions() Options {
	return Options{
		Side:   wire.SideServer,
		Reader: wire.DefaultReaderOptions(),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if !o.Side.IsValid() {
		return fmt.Errorf("invalid side %d", o.Side)
	}
	if err := o.Reader.Validate(); err != nil {
		return fmt.Errorf("invalid reader options: %w", err)
	}
	return nil
}

// ParseOptions parses YAML options. Fields absent from data keep their defaults.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptions reads YAML options from a file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	return ParseOptions(data)
}
