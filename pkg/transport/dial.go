package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Dial errors.
var (
	ErrDialAttemptsExhausted = errors.New("dial attempts exhausted")
)

// DialConfig configures Dial.
type DialConfig struct {
	// Network is the dial network (default "tcp").
	Network string `yaml:"network"`

	// AttemptTimeout bounds each connection attempt (default 5s).
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxAttempts limits the number of attempts (0 = until ctx is done).
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff configures the delay between attempts.
	Backoff BackoffConfig `yaml:"backoff"`

	// Logger receives retry diagnostics (default: discard).
	Logger *slog.Logger `yaml:"-"`
}

// Dial connects to address, retrying with exponential backoff until it
// succeeds, ctx is done, or MaxAttempts is reached.
func Dial(ctx context.Context, address string, cfg DialConfig) (net.Conn, error) {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backoff := NewBackoffWithConfig(cfg.Backoff)
	dialer := &net.Dialer{Timeout: cfg.AttemptTimeout}

	var lastErr error
	for attempt := 1; cfg.MaxAttempts == 0 || attempt <= cfg.MaxAttempts; attempt++ {
		conn, err := dialer.DialContext(ctx, cfg.Network, address)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial %s: %w", address, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoff.Next()
		logger.Debug("dial failed, retrying", "address", address, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial %s: %w", address, ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrDialAttemptsExhausted, cfg.MaxAttempts, lastErr)
}

// AcceptOne waits for a single connection on ln and then closes ln.
// A two-party network has exactly one peer, so nothing else is accepted.
func AcceptOne(ctx context.Context, ln net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		ln.Close()
		if r.err != nil {
			return nil, fmt.Errorf("accept failed: %w", r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		ln.Close()
		// Accept returns once the listener is closed.
		if r := <-ch; r.conn != nil {
			r.conn.Close()
		}
		return nil, ctx.Err()
	}
}
