// Package async provides the two concurrency primitives this module relies
// on: detached computations represented by a Future, and a uniform timeout
// wrapper for network-bound calls.
//
// Run starts a function in its own goroutine and returns a *Future that can
// be awaited, polled, or deliberately discarded. Discarding the future is how
// fire-and-forget side effects (such as opportunistic profile provisioning
// after sign-in) are modeled explicitly rather than hidden behind a forgotten
// goroutine.
//
// WithTimeout applies an operation-class time budget to a callback via a
// derived context and converts deadline expiry into ErrTimeout tagged with
// the operation name. Every backend call in this module goes through it so
// that timeout behavior is tuned in one place:
//
//	session, err := async.WithTimeout(ctx, 5*time.Second, "get session",
//	    func(ctx context.Context) (*backend.Session, error) {
//	        return provider.Session(ctx)
//	    })
//	if errors.Is(err, async.ErrTimeout) {
//	    // budget exceeded, request abandoned
//	}
package async
