package ghostalloc

import (
	ghostcell "github.com/joeycumines/go-ghostcell"
)

// ThreadCache is a per-worker bounded stack of free blocks for one size
// class. It is NOT safe for concurrent use; each worker owns its own.
//
// Pop/Push touch only the local buffer. Fill requests a batch from the
// manager (contiguous when the active slab can bump); Flush drains the
// buffer back. A flush of an empty cache is a no-op.
type ThreadCache struct {
	class int
	buf   []uintptr
	limit int
}

// NewThreadCache creates a cache for the given class index with the given
// capacity.
func NewThreadCache(class, capacity int) *ThreadCache {
	if class < 0 || class >= numClasses {
		panic("ghostalloc: invalid size class index")
	}
	if capacity <= 0 {
		capacity = 2 * fillCounts[class]
	}
	return &ThreadCache{
		class: class,
		buf:   make([]uintptr, 0, capacity),
		limit: capacity,
	}
}

// Len returns the number of cached blocks.
func (c *ThreadCache) Len() int { return len(c.buf) }

// Cap returns the cache capacity.
func (c *ThreadCache) Cap() int { return c.limit }

// Pop removes the most recently pushed block.
func (c *ThreadCache) Pop() (uintptr, bool) {
	if len(c.buf) == 0 {
		return 0, false
	}
	p := c.buf[len(c.buf)-1]
	c.buf = c.buf[:len(c.buf)-1]
	return p, true
}

// Push adds a block, reporting false when the cache is full.
func (c *ThreadCache) Push(p uintptr) bool {
	if len(c.buf) >= c.limit {
		return false
	}
	c.buf = append(c.buf, p)
	return true
}

// Fill requests up to n blocks from the manager.
func (c *ThreadCache) Fill(m *SizeClassManager, tok ghostcell.Reader, n int) {
	if n > c.limit-len(c.buf) {
		n = c.limit - len(c.buf)
	}
	if n <= 0 {
		return
	}
	m.AllocBatchInto(tok, &c.buf, n)
}

// Flush drains every cached block back to the manager.
func (c *ThreadCache) Flush(m *SizeClassManager, tok ghostcell.Reader) {
	for _, p := range c.buf {
		m.Free(tok, ptrAt(p))
	}
	c.buf = c.buf[:0]
}
