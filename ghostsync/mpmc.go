package ghostsync

import (
	"math/bits"
	"runtime"
	"sync/atomic"
)

// mpmcSpinLimit is how many CAS failures a producer/consumer tolerates
// before yielding the processor.
const mpmcSpinLimit = 20

type mpmcSlot[T any] struct {
	sequence atomic.Uint64
	value    T
}

// BoundedMpmc is a bounded multi-producer multi-consumer queue (Vyukov's
// sequence-numbered ring).
//
// Each slot carries a sequence number, initially its own index. A producer
// may write slot i when sequence == tail; it then stores tail+1, handing the
// slot to consumers. A consumer may read when sequence == head+1; it stores
// head+capacity, handing the slot back to producers one lap later. Fullness
// and emptiness fall out of the sequence algebra alone - at any instant
// tail-head is within [0, capacity].
//
// Sequence loads/stores are Go atomics (sequentially consistent), which
// covers the acquire-on-inspect / release-on-publish pairs the algorithm
// requires.
type BoundedMpmc[T any] struct {
	mask  uint64
	slots []mpmcSlot[T]
	_     [sizeOfCacheLine]byte
	head  atomic.Uint64
	_     [sizeOfCacheLine - sizeOfAtomicUint64]byte
	tail  atomic.Uint64
}

// NewBoundedMpmc creates a queue; capacity is rounded up to a power of two.
func NewBoundedMpmc[T any](capacity int) *BoundedMpmc[T] {
	if capacity <= 0 {
		panic("ghostsync: BoundedMpmc capacity must be positive")
	}
	n := 1 << bits.Len(uint(capacity-1))
	q := &BoundedMpmc[T]{
		mask:  uint64(n - 1),
		slots: make([]mpmcSlot[T], n),
	}
	for i := range q.slots {
		q.slots[i].sequence.Store(uint64(i))
	}
	return q
}

// Cap returns the (rounded) capacity.
func (q *BoundedMpmc[T]) Cap() int { return len(q.slots) }

// Push enqueues v. Returns false if the queue is full.
func (q *BoundedMpmc[T]) Push(v T) bool {
	backoff := 0
	for {
		tail := q.tail.Load()
		slot := &q.slots[tail&q.mask]
		seq := slot.sequence.Load()
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			if q.tail.CompareAndSwap(tail, tail+1) {
				slot.value = v
				slot.sequence.Store(tail + 1)
				return true
			}
		case diff < 0:
			// The slot still holds last lap's value: full.
			return false
		default:
			// Stale tail read; retry.
		}
		if backoff++; backoff > mpmcSpinLimit {
			runtime.Gosched()
			backoff = 0
		}
	}
}

// Pop dequeues a value. Returns false if the queue is empty.
func (q *BoundedMpmc[T]) Pop() (T, bool) {
	backoff := 0
	for {
		head := q.head.Load()
		slot := &q.slots[head&q.mask]
		seq := slot.sequence.Load()
		diff := int64(seq) - int64(head+1)

		switch {
		case diff == 0:
			if q.head.CompareAndSwap(head, head+1) {
				v := slot.value
				var zero T
				slot.value = zero
				slot.sequence.Store(head + q.mask + 1)
				return v, true
			}
		case diff < 0:
			var zero T
			return zero, false
		default:
		}
		if backoff++; backoff > mpmcSpinLimit {
			runtime.Gosched()
			backoff = 0
		}
	}
}

// Len approximates the number of queued items. Only advisory under
// concurrent use.
func (q *BoundedMpmc[T]) Len() int {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}
