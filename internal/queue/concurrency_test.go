package queue

import (
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

// TestConcurrentEnqueueStillSerializesExecution submits steps from many
// goroutines at once (errgroup fans the submissions out) and checks
// that the queue's single worker still runs them one at a time with no
// overlap, i.e. concurrent submission never buys concurrent execution
// (spec.md §5's single-threaded-cooperative guarantee).
func TestConcurrentEnqueueStillSerializesExecution(t *testing.T) {
	q := New()
	defer q.Shutdown()

	var running int32
	var maxObserved int32
	var g errgroup.Group

	const n = 64
	for i := 0; i < n; i++ {
		g.Go(func() error {
			<-q.EnqueueSync(func() error {
				cur := atomic.AddInt32(&running, 1)
				for {
					prev := atomic.LoadInt32(&maxObserved)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxObserved, prev, cur) {
						break
					}
				}
				atomic.AddInt32(&running, -1)
				return nil
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("errgroup.Wait: %v", err)
	}
	if max := atomic.LoadInt32(&maxObserved); max != 1 {
		t.Fatalf("max concurrent step execution = %d, want 1", max)
	}
}
