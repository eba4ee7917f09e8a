package async

import (
	"context"
	"sync"
)

// Future is a single-assignment result that any number of goroutines can wait on.
// The zero value is not usable; create futures with New, Resolved, Failed or Never.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Resolver completes a Future. Only the first call to Resolve or Reject has
// an effect.
type Resolver[T any] struct {
	f    *Future[T]
	once sync.Once
}

// New creates a pending future and the resolver that completes it.
func New[T any]() (*Future[T], *Resolver[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return f, &Resolver[T]{f: f}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f, r := New[T]()
	r.Resolve(v)
	return f
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f, r := New[T]()
	r.Reject(err)
	return f
}

// Never returns a future that never completes.
func Never[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future with v. Returns false if it was already completed.
func (r *Resolver[T]) Resolve(v T) bool {
	return r.complete(v, nil)
}

// Reject completes the future with err. Returns false if it was already completed.
func (r *Resolver[T]) Reject(err error) bool {
	var zero T
	return r.complete(zero, err)
}

func (r *Resolver[T]) complete(v T, err error) bool {
	completed := false
	r.once.Do(func() {
		r.f.value = v
		r.f.err = err
		close(r.f.done)
		completed = true
	})
	return completed
}

// Done returns a channel that is closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx is done.
// Cancelling ctx abandons the wait; the underlying operation keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether the future has completed.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the completed result without blocking.
// It returns the zero value and a nil error while the future is pending.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, nil
	}
	return f.value, f.err
}
