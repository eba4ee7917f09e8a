package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    10 * time.Millisecond,
		Max:        40 * time.Millisecond,
		Multiplier: 2,
	})

	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.Equal(t, 20*time.Millisecond, b.Next())
	assert.Equal(t, 40*time.Millisecond, b.Next())
	assert.Equal(t, 40*time.Millisecond, b.Next())
	assert.Equal(t, 4, b.Attempts())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, 10*time.Millisecond, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 20; i++ {
		base := b.current
		d := b.Next()
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+time.Duration(float64(base)*JitterFactor))
	}
}

func TestDialAndAcceptOne(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := AcceptOne(ctx, ln)
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	client, err := Dial(ctx, ln.Addr().String(), DialConfig{MaxAttempts: 3})
	require.NoError(t, err)
	defer client.Close()

	server, ok := <-accepted
	require.True(t, ok, "AcceptOne failed")
	defer server.Close()

	// The listener is closed after the first peer.
	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)

	_, ok = server.(HalfCloser)
	assert.True(t, ok)
}

func TestDialGivesUpAfterMaxAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, DialConfig{
		MaxAttempts: 2,
		Backoff:     BackoffConfig{Initial: time.Millisecond},
	})
	assert.ErrorIs(t, err, ErrDialAttemptsExhausted)
}

func TestDialNoDelayAfterLastAttempt(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	start := time.Now()
	_, err = Dial(context.Background(), addr, DialConfig{
		MaxAttempts: 1,
		Backoff:     BackoffConfig{Initial: 3 * time.Second},
	})
	assert.ErrorIs(t, err, ErrDialAttemptsExhausted)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDialHonorsContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Dial(ctx, addr, DialConfig{Backoff: BackoffConfig{Initial: time.Second}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcceptOneCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = AcceptOne(ctx, ln)
	assert.ErrorIs(t, err, context.Canceled)
}
