package queue

import (
	"errors"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	defer func() { q.Shutdown(); q.Wait() }()

	var order []int
	var mu chan struct{} = make(chan struct{}, 1)
	mu <- struct{}{}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		q.Enqueue(func() {
			<-mu
			order = append(order, i)
			mu <- struct{}{}
			if i == 9 {
				close(done)
			}
		})
	}
	<-done

	for i, v := range order {
		if v != i {
			t.Fatalf("FIFO violated: order=%v", order)
		}
	}
}

func TestEnqueueSyncReturnsError(t *testing.T) {
	q := New()
	defer func() { q.Shutdown(); q.Wait() }()

	want := errors.New("boom")
	err := <-q.EnqueueSync(func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestShutdownRunsQueuedCleanup(t *testing.T) {
	q := New()
	ran := make(chan struct{}, 1)
	q.Enqueue(func() { ran <- struct{}{} })
	q.Shutdown()
	q.Wait()
	select {
	case <-ran:
	default:
		t.Fatal("queued step did not run before shutdown completed")
	}
}
