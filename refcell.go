package ghostcell

import "sync/atomic"

// RefCell borrow states: 0 = free, k > 0 = k readers, -1 = one writer.

// RefCell is a cell with runtime borrow counting layered on top of the brand
// check.
//
// Access requires both a token of the right brand and a successful atomic
// transition of the borrow state. This is the slot to use when the statically
// checked discipline of Cell is too coarse - for example when several
// goroutines share one read token and occasionally hand the write token
// around, and a late reader must be detected rather than silently raced.
//
// Memory ordering: state transitions use CompareAndSwap (sequentially
// consistent in Go, which subsumes the acquire/release the algorithm needs);
// the unlocking store is a plain atomic store, again at least release.
//
// The struct is padded to keep the hot borrow counter off neighbouring cache
// lines.
type RefCell[T any] struct {
	_      [0]func()
	brand  uint64
	borrow atomic.Int32
	_      [sizeOfCacheLine - sizeOfAtomicInt32]byte
	value  T
}

// Ref is a shared borrow of a RefCell. It must be released exactly once.
type Ref[T any] struct {
	cell *RefCell[T]
}

// Value returns the borrowed contents. Read-only by contract.
func (r Ref[T]) Value() *T { return &r.cell.value }

// Release ends the borrow. Further use of the guard panics.
func (r *Ref[T]) Release() {
	if r.cell == nil {
		panic("ghostcell: Ref released twice")
	}
	r.cell.borrow.Add(-1)
	r.cell = nil
}

// RefMut is an exclusive borrow of a RefCell. It must be released exactly once.
type RefMut[T any] struct {
	cell *RefCell[T]
}

// Value returns the exclusively borrowed contents.
func (r *RefMut[T]) Value() *T { return &r.cell.value }

// Release ends the borrow. Further use of the guard panics.
func (r *RefMut[T]) Release() {
	if r.cell == nil {
		panic("ghostcell: RefMut released twice")
	}
	r.cell.borrow.Store(0)
	r.cell = nil
}

// NewRefCell creates a runtime borrow-checked cell branded by tok's brand.
func NewRefCell[T any](tok Reader, v T) *RefCell[T] {
	if tok == nil {
		panic("ghostcell: nil token")
	}
	c := &RefCell[T]{brand: tok.brandID()}
	c.value = v
	return c
}

// IsBorrowed reports whether the cell is currently borrowed.
func (c *RefCell[T]) IsBorrowed(tok Reader) bool {
	checkBrand(c.brand, tok)
	return c.borrow.Load() != 0
}

// Borrow takes a shared borrow.
//
// Panics if the cell is mutably borrowed.
func (c *RefCell[T]) Borrow(tok Reader) Ref[T] {
	checkBrand(c.brand, tok)
	for {
		cur := c.borrow.Load()
		if cur < 0 {
			panic("ghostcell: already mutably borrowed")
		}
		if c.borrow.CompareAndSwap(cur, cur+1) {
			return Ref[T]{cell: c}
		}
	}
}

// TryBorrow takes a shared borrow, reporting failure instead of panicking.
func (c *RefCell[T]) TryBorrow(tok Reader) (Ref[T], bool) {
	checkBrand(c.brand, tok)
	for {
		cur := c.borrow.Load()
		if cur < 0 {
			return Ref[T]{}, false
		}
		if c.borrow.CompareAndSwap(cur, cur+1) {
			return Ref[T]{cell: c}, true
		}
	}
}

// BorrowMut takes an exclusive borrow.
//
// Panics if the cell is borrowed in any way.
func (c *RefCell[T]) BorrowMut(tok *Token) RefMut[T] {
	checkBrand(c.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		panic("ghostcell: already borrowed")
	}
	return RefMut[T]{cell: c}
}

// TryBorrowMut takes an exclusive borrow, reporting failure instead of
// panicking.
func (c *RefCell[T]) TryBorrowMut(tok *Token) (RefMut[T], bool) {
	checkBrand(c.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		return RefMut[T]{}, false
	}
	return RefMut[T]{cell: c}, true
}

// Replace stores v and returns the previous contents.
//
// Panics if the cell is borrowed.
func (c *RefCell[T]) Replace(tok *Token, v T) T {
	checkBrand(c.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		panic("ghostcell: already borrowed")
	}
	old := c.value
	c.value = v
	c.borrow.Store(0)
	return old
}

// ReplaceWith stores f(current) and returns the value that was in the slot
// after f ran.
//
// Panics if the cell is borrowed.
func (c *RefCell[T]) ReplaceWith(tok *Token, f func(*T) T) T {
	checkBrand(c.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		panic("ghostcell: already borrowed")
	}
	next := f(&c.value)
	old := c.value
	c.value = next
	c.borrow.Store(0)
	return old
}

// Swap exchanges the contents of two cells.
//
// Panics if either cell is borrowed. On a partial failure the successfully
// claimed cell is unlocked before panicking.
func (c *RefCell[T]) Swap(tok *Token, other *RefCell[T]) {
	checkBrand(c.brand, tok)
	checkBrand(other.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		panic("ghostcell: already borrowed")
	}
	if !other.borrow.CompareAndSwap(0, -1) {
		c.borrow.Store(0)
		panic("ghostcell: already borrowed")
	}
	c.value, other.value = other.value, c.value
	c.borrow.Store(0)
	other.borrow.Store(0)
}

// Take replaces the contents with the zero value, returning the old contents.
//
// Panics if the cell is borrowed.
func (c *RefCell[T]) Take(tok *Token) T {
	checkBrand(c.brand, tok)
	if !c.borrow.CompareAndSwap(0, -1) {
		panic("ghostcell: already borrowed")
	}
	old := c.value
	var zero T
	c.value = zero
	c.borrow.Store(0)
	return old
}
