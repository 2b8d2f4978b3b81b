// Package async provides the single-settlement future used for one-shot
// coordination: prompt answers, the session abort signal, phase races.
package async

import (
	"context"
	"sync"
)

// Token is a future that settles exactly once, to either a value or an
// error. The first Resolve or Reject wins; every later attempt is a
// silent no-op. Waiters race on Done or block in Await; both observe the
// settled result immediately if settlement already happened.
type Token[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
}

func NewToken[T any]() *Token[T] {
	return &Token[T]{done: make(chan struct{})}
}

// Resolve settles the token with v. Reports whether this call took
// effect (false if the token was already settled).
func (t *Token[T]) Resolve(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return false
	}
	t.settled = true
	t.value = v
	close(t.done)
	return true
}

// Reject settles the token with err. Same first-wins rule as Resolve.
func (t *Token[T]) Reject(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return false
	}
	t.settled = true
	t.err = err
	close(t.done)
	return true
}

// Done is closed once the token settles. Use in a select to race the
// token against other signals.
func (t *Token[T]) Done() <-chan struct{} {
	return t.done
}

// Settled reports whether the token has a result.
func (t *Token[T]) Settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

// Result returns the settled value and error. Only meaningful after Done
// is closed; before that it returns zero values.
func (t *Token[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Await blocks until the token settles or ctx is cancelled. Calling it
// again after settlement returns the same result immediately, which makes
// the answer re-readable by any number of waiters.
func (t *Token[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
