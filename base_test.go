package webcodecs

import (
	"errors"
	"testing"

	"github.com/e1z0/gowebcodecs/werror"
)

func TestBaseRequireState(t *testing.T) {
	b := newBase(nil, nil)
	if err := b.requireState(StateConfigured, "op"); err == nil {
		t.Fatal("expected InvalidState from Unconfigured")
	}
	b.setState(StateConfigured)
	if err := b.requireState(StateConfigured, "op"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBaseRequireNot(t *testing.T) {
	b := newBase(nil, nil)
	b.setState(StateClosed)
	if err := b.requireNot(StateClosed, "op"); err == nil {
		t.Fatal("expected InvalidState once closed")
	}
}

func TestBaseQueueSizeCounter(t *testing.T) {
	b := newBase(nil, nil)
	dequeues := 0
	b.dequeueFn = func() { dequeues++ }

	b.beginWork()
	b.beginWork()
	if got := b.QueueSize(); got != 2 {
		t.Fatalf("QueueSize after two beginWork = %d, want 2", got)
	}
	b.endWork()
	if got := b.QueueSize(); got != 1 {
		t.Fatalf("QueueSize after one endWork = %d, want 1", got)
	}
	if dequeues != 1 {
		t.Fatalf("dequeue fired %d times, want 1", dequeues)
	}
	b.endWork()
	if dequeues != 2 {
		t.Fatalf("dequeue fired %d times, want 2", dequeues)
	}
}

func TestBaseFireErrorOnce(t *testing.T) {
	var fired int
	var lastErr error
	b := newBase(func(err error) { fired++; lastErr = err }, nil)

	want := werror.TypeErrorf("boom")
	b.fireError(want)
	b.fireError(werror.TypeErrorf("boom again"))

	if fired != 1 {
		t.Fatalf("error callback fired %d times, want 1", fired)
	}
	if !errors.Is(lastErr, werror.ErrType) {
		t.Fatalf("lastErr = %v, want TypeError", lastErr)
	}
}

func TestBaseFireErrorSkipsAbort(t *testing.T) {
	var fired int
	b := newBase(func(error) { fired++ }, nil)
	b.fireError(werror.Abortf("reset"))
	if fired != 0 {
		t.Fatalf("error callback fired for an Abort-class error, want 0 fires")
	}
}
