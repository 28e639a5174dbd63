package ghostalloc

import (
	"sync/atomic"
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/joeycumines/go-ghostcell/ghostsync"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel/attribute"
)

// SizeClassManager is the lock-free pool of slab pages for one size class.
//
// Fast path: allocate from the active slab, or swing active to a slab popped
// from the available list. Slow path: exactly one goroutine wins the
// creation lock and maps a new page; the rest park on the wait/wake
// primitive instead of storming the page allocator. Frees resolve the slab
// from the block address and, on the full-to-available transition, requeue
// the slab.
type SizeClassManager struct {
	blockSize int
	pa        PageAllocator
	logger    *logiface.Logger[logiface.Event]
	stats     *Stats

	active    atomic.Uintptr // *slab
	available freeList       // not-full slabs, linked through page offset 0
	allSlabs  atomic.Uintptr // teardown chain, linked through nextAll
	creation  atomic.Uint32  // 0 unlocked, 1 locked
}

// NewSizeClassManager creates a manager for the given block size (a power of
// two between minClassSize and maxClassSize).
func NewSizeClassManager(blockSize int, opts ...Option) *SizeClassManager {
	if blockSize < minClassSize || blockSize > maxClassSize || blockSize&(blockSize-1) != 0 {
		panic("ghostalloc: invalid size class")
	}
	cfg := resolveAllocOptions(opts)
	return &SizeClassManager{
		blockSize: blockSize,
		pa:        cfg.pages,
		logger:    cfg.logger,
	}
}

// BlockSize returns the class block size.
func (m *SizeClassManager) BlockSize() int { return m.blockSize }

// BlocksPerSlab returns how many blocks one page carries.
func (m *SizeClassManager) BlocksPerSlab() int { return slabCapacity(m.blockSize) }

// Alloc returns one block, or ErrOutOfMemory.
func (m *SizeClassManager) Alloc(tok ghostcell.Reader) (unsafe.Pointer, error) {
	_ = tok
	for {
		activePtr := m.active.Load()
		if activePtr != 0 {
			if p, ok := (*slab)(unsafe.Pointer(activePtr)).alloc(); ok {
				return unsafe.Pointer(p), nil
			}
		}

		// Active is missing or exhausted; try to install a not-full slab.
		if sp, ok := m.available.pop(); ok {
			if m.active.CompareAndSwap(activePtr, sp) {
				// The displaced slab may have regained blocks meanwhile.
				if activePtr != 0 {
					old := (*slab)(unsafe.Pointer(activePtr))
					if !old.isFull() {
						m.available.push(activePtr)
					}
				}
				if p, ok := (*slab)(unsafe.Pointer(sp)).alloc(); ok {
					return unsafe.Pointer(p), nil
				}
				continue
			}
			// Raced with another installer; return the slab and retry.
			m.available.push(sp)
			continue
		}

		// Slow path: create a new slab, serialized by the creation lock.
		if m.creation.CompareAndSwap(0, 1) {
			// Re-check under the lock: a free may have repopulated
			// available while we acquired it.
			if sp, ok := m.available.pop(); ok {
				m.available.push(sp)
				m.creation.Store(0)
				ghostsync.WakeAll(&m.creation)
				continue
			}

			s := m.createSlab()
			if s == nil {
				m.creation.Store(0)
				ghostsync.WakeOne(&m.creation)
				return nil, ErrOutOfMemory
			}
			m.available.push(s.base())
			m.creation.Store(0)
			ghostsync.WakeOne(&m.creation)
		} else {
			ghostsync.WaitOn(&m.creation, 1)
		}
	}
}

// createSlab maps a page, initializes the header, and links it on the
// teardown chain.
func (m *SizeClassManager) createSlab() *slab {
	span := startSpan("ghostalloc.slab.create", attribute.Int("block_size", m.blockSize))
	defer span.End()

	s := newSlab(m.pa, m.blockSize)
	if s == nil {
		if m.logger != nil {
			m.logger.Warning().Int("block_size", m.blockSize).Log("slab creation failed")
		}
		return nil
	}
	for {
		head := m.allSlabs.Load()
		s.nextAll.Store(head)
		if m.allSlabs.CompareAndSwap(head, s.base()) {
			break
		}
	}
	if m.stats != nil {
		m.stats.slabsCreated.Add(1)
	}
	if m.logger != nil {
		m.logger.Debug().
			Int("block_size", m.blockSize).
			Int("capacity", int(s.capacity)).
			Log("slab created")
	}
	return s
}

// Free returns a block to its slab. When the slab transitions from full to
// not-full, it is requeued on the available list.
func (m *SizeClassManager) Free(tok ghostcell.Reader, p unsafe.Pointer) {
	_ = tok
	s := slabOf(uintptr(p))
	prev := s.freeBlock(uintptr(p))
	if prev == s.capacity {
		m.available.push(s.base())
	}
}

// AllocBatchInto appends up to count blocks to buf, preferring one
// contiguous bump run on the active slab (the thread-cache refill path).
func (m *SizeClassManager) AllocBatchInto(tok ghostcell.Reader, buf *[]uintptr, count int) {
	if activePtr := m.active.Load(); activePtr != 0 {
		s := (*slab)(unsafe.Pointer(activePtr))
		if base, ok := s.allocBumpBatch(count); ok {
			for i := 0; i < count; i++ {
				*buf = append(*buf, base+uintptr(i)*uintptr(m.blockSize))
			}
			return
		}
	}
	for i := 0; i < count; i++ {
		p, err := m.Alloc(tok)
		if err != nil {
			return
		}
		*buf = append(*buf, uintptr(p))
	}
}

// Close releases every page ever created by this manager. The caller must
// guarantee no blocks are in use.
func (m *SizeClassManager) Close() {
	m.active.Store(0)
	m.available.head.Store(0)
	cur := m.allSlabs.Swap(0)
	for cur != 0 {
		s := (*slab)(unsafe.Pointer(cur))
		next := s.nextAll.Load()
		m.pa.FreePage(unsafe.Pointer(cur))
		cur = next
	}
}

// pageCount returns how many pages the manager has created (teardown chain
// length); used by invariant tests.
func (m *SizeClassManager) pageCount() int {
	n := 0
	for cur := m.allSlabs.Load(); cur != 0; {
		s := (*slab)(unsafe.Pointer(cur))
		n++
		cur = s.nextAll.Load()
	}
	return n
}
