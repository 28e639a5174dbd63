package ghostsync

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestBoundedMpmcFullEmpty(t *testing.T) {
	q := NewBoundedMpmc[int](4)
	if q.Cap() != 4 {
		t.Fatalf("capacity %d", q.Cap())
	}
	for i := 0; i < 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	if q.Push(99) {
		t.Fatal("push into full queue must fail")
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (%v)", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop from empty queue must fail")
	}
}

func TestBoundedMpmcCapacityRounding(t *testing.T) {
	if got := NewBoundedMpmc[int](5).Cap(); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestBoundedMpmcWrapAround(t *testing.T) {
	q := NewBoundedMpmc[int](2)
	for lap := 0; lap < 1000; lap++ {
		if !q.Push(lap) {
			t.Fatalf("push failed on lap %d", lap)
		}
		v, ok := q.Pop()
		if !ok || v != lap {
			t.Fatalf("lap %d: got %d (%v)", lap, v, ok)
		}
	}
}

func TestBoundedMpmcConcurrent(t *testing.T) {
	const producers = 4
	const consumers = 4
	const perProducer = 10000

	q := NewBoundedMpmc[int](64)
	var sum atomic.Int64
	var popped atomic.Int64

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				for !q.Push(v) {
				}
				// The occupancy bound must hold at every instant.
				if n := q.Len(); n > q.Cap() {
					t.Errorf("occupancy %d exceeds capacity %d", n, q.Cap())
					return
				}
			}
		}(p)
	}
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for popped.Load() < producers*perProducer {
				if v, ok := q.Pop(); ok {
					sum.Add(int64(v))
					popped.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	n := int64(producers * perProducer)
	want := n * (n - 1) / 2
	if sum.Load() != want {
		t.Fatalf("sum %d, want %d", sum.Load(), want)
	}
}
