package async

import "sync"

// Signal is a broadcast-once event. It fires at most once and every waiter,
// whether it subscribed before or after the event, observes it.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unfired signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire fires the signal. Returns true only for the call that actually fired it.
func (s *Signal) Fire() bool {
	fired := false
	s.once.Do(func() {
		close(s.ch)
		fired = true
	})
	return fired
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Branch returns a new future that completes when the signal fires.
// Each branch is an independent handle over the same event.
func (s *Signal) Branch() *Future[struct{}] {
	return &Future[struct{}]{done: s.ch}
}
