package ghostsync

import (
	"math/bits"
	"sync/atomic"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

// ChaseLevDeque is a fixed-capacity work-stealing deque of uint64 items.
//
// Role split: exactly one owner goroutine calls PushBottom and PopBottom
// (witnessed by the write token); any number of stealers call Steal with
// read-only child tokens. At most one consumer - owner or stealer - returns
// any given element, and bottom never falls behind top.
//
// Memory ordering: the reference algorithm needs a release fence between the
// slot write and the bottom publication, and SeqCst fences in pop/steal
// between the counter accesses. Go's sync/atomic operations are sequentially
// consistent, which subsumes all of those; the operation order below mirrors
// the reference algorithm exactly so the proof carries over.
type ChaseLevDeque struct {
	top    atomic.Int64
	_      [sizeOfCacheLine - sizeOfAtomicUint64]byte
	bottom atomic.Int64
	_      [sizeOfCacheLine - sizeOfAtomicUint64]byte
	buf    []atomic.Uint64
	mask   int64
}

// NewChaseLevDeque creates a deque with the given capacity, which must be a
// nonzero power of two.
func NewChaseLevDeque(capacity int) *ChaseLevDeque {
	if capacity <= 0 || bits.OnesCount(uint(capacity)) != 1 {
		panic("ghostsync: ChaseLevDeque capacity must be a power of two")
	}
	return &ChaseLevDeque{
		buf:  make([]atomic.Uint64, capacity),
		mask: int64(capacity - 1),
	}
}

// Clear resets the deque. Owner-only.
func (d *ChaseLevDeque) Clear(tok *ghostcell.Token) {
	_ = tok
	d.top.Store(0)
	d.bottom.Store(0)
}

// PushBottom appends x at the bottom. Owner-only.
//
// Returns false if the deque is full.
func (d *ChaseLevDeque) PushBottom(tok *ghostcell.Token, x uint64) bool {
	_ = tok
	b := d.bottom.Load()
	t := d.top.Load()
	if b-t >= int64(len(d.buf)) {
		return false
	}
	d.buf[b&d.mask].Store(x)
	// The SC store of bottom publishes the slot write to stealers.
	d.bottom.Store(b + 1)
	return true
}

// PopBottom removes the bottom element. Owner-only.
func (d *ChaseLevDeque) PopBottom(tok *ghostcell.Token) (uint64, bool) {
	_ = tok
	b := d.bottom.Load()
	t0 := d.top.Load()
	if b <= t0 {
		return 0, false
	}

	b1 := b - 1
	d.bottom.Store(b1)
	t := d.top.Load()
	if t > b1 {
		// Lost the race with a stealer; restore.
		d.bottom.Store(b)
		return 0, false
	}

	x := d.buf[b1&d.mask].Load()
	if t == b1 {
		// Last element: race stealers via CAS on top.
		if !d.top.CompareAndSwap(t, t+1) {
			d.bottom.Store(b)
			return 0, false
		}
		d.bottom.Store(b)
	}
	return x, true
}

// Steal removes the top element. Safe from any goroutine holding a child
// token.
func (d *ChaseLevDeque) Steal(tok ghostcell.ShToken) (uint64, bool) {
	_ = tok
	for {
		t := d.top.Load()
		b := d.bottom.Load()
		if t >= b {
			return 0, false
		}
		x := d.buf[t&d.mask].Load()
		if d.top.CompareAndSwap(t, t+1) {
			return x, true
		}
	}
}
