package ghostcell

// OnceCell is a token-gated cell that can be written once and read many
// times.
//
// Initialization is gated only by the token; it is not synchronized beyond
// that. For a concurrent first-init race, use LazyLock (this package) or
// ghostsync.OnceLock.
type OnceCell[T any] struct {
	brand uint64
	init  bool
	value T
}

// NewOnceCell creates an empty once-cell branded by tok's brand.
func NewOnceCell[T any](tok Reader) *OnceCell[T] {
	if tok == nil {
		panic("ghostcell: nil token")
	}
	return &OnceCell[T]{brand: tok.brandID()}
}

// IsInitialized reports whether the cell has been set.
func (c *OnceCell[T]) IsInitialized(tok Reader) bool {
	checkBrand(c.brand, tok)
	return c.init
}

// Get returns the value if initialized.
func (c *OnceCell[T]) Get(tok Reader) (*T, bool) {
	checkBrand(c.brand, tok)
	if !c.init {
		return nil, false
	}
	return &c.value, true
}

// GetMut returns an exclusive view of the value if initialized.
func (c *OnceCell[T]) GetMut(tok *Token) (*T, bool) {
	checkBrand(c.brand, tok)
	if !c.init {
		return nil, false
	}
	return &c.value, true
}

// Set stores v if the cell is uninitialized. Returns false (rejecting the
// value) if it was already set.
func (c *OnceCell[T]) Set(tok *Token, v T) bool {
	checkBrand(c.brand, tok)
	if c.init {
		return false
	}
	c.value = v
	c.init = true
	return true
}

// GetOrInit returns the value, initializing it with f on first call.
func (c *OnceCell[T]) GetOrInit(tok *Token, f func() T) *T {
	checkBrand(c.brand, tok)
	if !c.init {
		c.value = f()
		c.init = true
	}
	return &c.value
}

// Take removes and returns the value, leaving the cell uninitialized.
func (c *OnceCell[T]) Take(tok *Token) (T, bool) {
	checkBrand(c.brand, tok)
	if !c.init {
		var zero T
		return zero, false
	}
	v := c.value
	var zero T
	c.value = zero
	c.init = false
	return v, true
}
