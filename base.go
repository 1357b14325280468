package webcodecs

import (
	"sync"
	"sync/atomic"

	"github.com/e1z0/gowebcodecs/internal/queue"
	"github.com/e1z0/gowebcodecs/werror"
)

// base is the shared state-machine/queue/error-trap scaffolding behind
// all four codec types (spec.md §3 lifecycle, §4.D control-message
// queue, §5 concurrency). Each concrete codec embeds base and adds its
// own backend handle plus configure/decode-or-encode/flush bodies.
type base struct {
	mu    sync.Mutex
	state CodecState
	q     *queue.Queue

	queueSize int32 // decodeQueueSize / encodeQueueSize, spec.md §3

	errOnce   sync.Once
	errorFn   func(error)
	dequeueFn func()
}

func newBase(onError func(error), onDequeue func()) base {
	return base{
		state:     StateUnconfigured,
		q:         queue.New(),
		errorFn:   onError,
		dequeueFn: onDequeue,
	}
}

// State returns the current lifecycle state.
func (b *base) State() CodecState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// QueueSize returns decodeQueueSize/encodeQueueSize (spec.md §3).
func (b *base) QueueSize() int { return int(atomic.LoadInt32(&b.queueSize)) }

// requireState fails synchronously with InvalidState if the current
// state is not exactly want (spec.md §3: "Any illegal call yields
// InvalidState without mutating state").
func (b *base) requireState(want CodecState, op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != want {
		return werror.InvalidStatef("%s: invalid in state %s", op, b.state)
	}
	return nil
}

// requireNot fails if the current state equals bad.
func (b *base) requireNot(bad CodecState, op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == bad {
		return werror.InvalidStatef("%s: invalid in state %s", op, b.state)
	}
	return nil
}

func (b *base) setState(s CodecState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// beginWork increments the queue-size counter synchronously, as
// decode()/encode() must (spec.md §3/§8 invariant 2).
func (b *base) beginWork() { atomic.AddInt32(&b.queueSize, 1) }

// endWork decrements the counter and fires exactly one dequeue event,
// regardless of the step's outcome (spec.md §4.D "Counter decrement").
func (b *base) endWork() {
	atomic.AddInt32(&b.queueSize, -1)
	if b.dequeueFn != nil {
		b.dequeueFn()
	}
}

// fireError invokes the user's error callback at most once per
// instance lifetime (spec.md §3/§7/§8 invariant 3). Abort-class errors
// (produced by reset/close) must never reach here.
func (b *base) fireError(err error) {
	if err == nil || werror.IsAbort(err) {
		return
	}
	b.errOnce.Do(func() {
		if b.errorFn != nil {
			b.errorFn(err)
		}
	})
}

// closeInternal transitions to Closed exactly once's worth of queued
// cleanup (callers still enqueue their own backend-free step after
// calling this) and is idempotent from any state (spec.md §3 close).
func (b *base) closeInternal() {
	b.mu.Lock()
	already := b.state == StateClosed
	b.state = StateClosed
	b.mu.Unlock()
	if already {
		return
	}
}

// shutdownQueue stops accepting new steps once the currently queued
// ones have drained (spec.md §4.D: "free calls must not be dropped").
func (b *base) shutdownQueue() { b.q.Shutdown() }
