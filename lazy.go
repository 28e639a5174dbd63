package ghostcell

import "sync"

// lazyState values for LazyCell.
const (
	lazyUninit = iota
	lazyReady
)

// LazyCell memoizes the result of an initializer under token gating.
//
// The initializer is retained, so the cell can be invalidated and recomputed.
// Not synchronized beyond the token; use LazyLock for concurrent first-init.
type LazyCell[T any] struct {
	brand uint64
	state uint8
	init  func() T
	value T
}

// NewLazyCell creates a lazy cell with the given initializer.
func NewLazyCell[T any](tok Reader, init func() T) *LazyCell[T] {
	if tok == nil {
		panic("ghostcell: nil token")
	}
	if init == nil {
		panic("ghostcell: nil initializer")
	}
	return &LazyCell[T]{brand: tok.brandID(), init: init}
}

// Get returns the memoized value, computing it on first use.
func (c *LazyCell[T]) Get(tok *Token) *T {
	checkBrand(c.brand, tok)
	if c.state == lazyUninit {
		c.value = c.init()
		c.state = lazyReady
	}
	return &c.value
}

// GetMut is Get with an exclusive view of the result.
func (c *LazyCell[T]) GetMut(tok *Token) *T {
	return c.Get(tok)
}

// Invalidate drops the memoized value; the next Get recomputes it.
func (c *LazyCell[T]) Invalidate(tok *Token) {
	checkBrand(c.brand, tok)
	var zero T
	c.value = zero
	c.state = lazyUninit
}

// LazyLock is the concurrent counterpart of LazyCell: the initializer runs
// exactly once even when multiple goroutines race Get with shared tokens.
// The initializer is discarded after it runs and the value cannot be
// invalidated.
type LazyLock[T any] struct {
	brand uint64
	once  sync.Once
	init  func() T
	value T
}

// NewLazyLock creates a concurrent lazy cell with the given initializer.
func NewLazyLock[T any](tok Reader, init func() T) *LazyLock[T] {
	if tok == nil {
		panic("ghostcell: nil token")
	}
	if init == nil {
		panic("ghostcell: nil initializer")
	}
	return &LazyLock[T]{brand: tok.brandID(), init: init}
}

// Get returns the value, running the initializer exactly once across all
// callers.
func (c *LazyLock[T]) Get(tok Reader) *T {
	checkBrand(c.brand, tok)
	c.once.Do(func() {
		c.value = c.init()
		c.init = nil
	})
	return &c.value
}

// GetMut is Get requiring the write token; the returned pointer may be used
// for mutation under the usual single-writer rule.
func (c *LazyLock[T]) GetMut(tok *Token) *T {
	return c.Get(tok)
}
