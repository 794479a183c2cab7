package pagination

import (
	"context"
)

// fetchFunc performs one page request.
type fetchFunc func(ctx context.Context) (*Page, error)

// pendingFetch holds a single dispatched page request. The result fields
// are written once by the fetching goroutine before done is closed and are
// only read after done is closed.
type pendingFetch struct {
	done   chan struct{}
	page   *Page
	err    error
	cancel context.CancelFunc
}

// startFetch dispatches fetch on its own goroutine.
func startFetch(ctx context.Context, fetch fetchFunc) *pendingFetch {
	ctx, cancel := context.WithCancel(ctx)
	p := &pendingFetch{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	paginationInFlight.Inc()
	go func() {
		defer close(p.done)
		p.page, p.err = fetch(ctx)
	}()

	return p
}

// resolved reports whether the request has completed, without blocking.
func (p *pendingFetch) resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// wait suspends until the request resolves or ctx ends. It returns ctx.Err()
// in the latter case; the request keeps running and can be waited on again.
// After a nil return the result is available in page and err.
func (p *pendingFetch) wait(ctx context.Context) error {
	if p.resolved() {
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discard releases the request. Called exactly once per pendingFetch, after
// its result was consumed or when the owning stream is closed.
func (p *pendingFetch) discard() {
	p.cancel()
	paginationInFlight.Dec()
}
