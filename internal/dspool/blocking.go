package dspool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// blockingPool bounds how many blocking-driver calls (any cgo or
// otherwise synchronous driver; no connector in this package routes
// through it) run concurrently, so a burst of slow synchronous
// work can't starve the rest of the process the way an unbounded
// goroutine-per-call fan-out would.
type blockingPool struct {
	sem *semaphore.Weighted
}

func newBlockingPool(maxConcurrent int64) *blockingPool {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &blockingPool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run acquires a slot, runs fn on its own goroutine, and returns fn's
// result — or ctx's error if the caller is cancelled while waiting for a
// slot or for fn to finish.
func (p *blockingPool) Run(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	type result struct {
		val any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

var defaultBlockingPool = newBlockingPool(4)
