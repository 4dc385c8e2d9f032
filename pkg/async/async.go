package async

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Future represents the result of a detached computation.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Await blocks until the computation completes and returns its result and error.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits for completion up to the given timeout.
// Returns ErrTimeout if the computation does not finish in time; the
// underlying goroutine keeps running and its result is discarded.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the computation has finished without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Run executes fn in its own goroutine and returns a Future for its result.
// Callers that never Await the future get fire-and-forget semantics; pair
// with a logging wrapper so a discarded error is still observable.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.result, f.err = fn(ctx)
	}()

	return f
}

// WithTimeout runs fn under a derived context with the given budget and maps
// a deadline expiry to ErrTimeout labelled with the operation name. This is
// the single timeout wrapper shared by every network-bound operation in the
// module; call sites must not re-implement deadline plumbing.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return result, err
}
