package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/twoparty-go/pkg/transport"
	"github.com/mash-protocol/twoparty-go/pkg/twoparty"
)

// Config holds the peer configuration. Flags override file values.
type Config struct {
	Listen      string               `yaml:"listen"`
	Connect     string               `yaml:"connect"`
	LogLevel    string               `yaml:"log_level"`
	ProtocolLog string               `yaml:"protocol_log"`
	Interactive bool                 `yaml:"interactive"`
	Dial        transport.DialConfig `yaml:"dial"`
	Network     twoparty.Options     `yaml:"network"`
}

// DefaultConfig returns the default peer configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Dial:     transport.DialConfig{MaxAttempts: 10},
		Network:  twoparty.DefaultOptions(),
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that exactly one of Listen and Connect is set.
func (c Config) Validate() error {
	if (c.Listen == "") == (c.Connect == "") {
		return fmt.Errorf("exactly one of listen or connect must be set")
	}
	return c.Network.Validate()
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}
