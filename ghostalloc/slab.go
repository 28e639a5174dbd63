package ghostalloc

import (
	"sync/atomic"
	"unsafe"
)

// slab is the header embedded at the start of each 4 KiB page. The remainder
// of the page is an array of fixed-size blocks of one size class.
//
// nextMgr must stay the first field: the manager threads not-full slabs on a
// freeList, which writes its link into offset 0 of the page.
//
// Invariant: allocCount is always in [0, capacity], and equals
// capacity - (free-list length + (capacity - bump)).
type slab struct {
	nextMgr   atomic.Uintptr // manager freelist link (offset 0, see above)
	nextAll   atomic.Uintptr // all-slabs teardown chain
	free      freeList
	bump      atomic.Uint32
	allocCnt  atomic.Uint32
	blockSize uint32
	capacity  uint32
}

const slabHeaderSize = unsafe.Sizeof(slab{})

// slabObjectStart returns the offset of the first block for a given block
// size: the header rounded up to block alignment.
func slabObjectStart(blockSize int) uintptr {
	return alignUp(slabHeaderSize, uintptr(blockSize))
}

// slabCapacity returns how many blocks of blockSize fit behind the header.
func slabCapacity(blockSize int) int {
	start := slabObjectStart(blockSize)
	if start >= PageSize {
		return 0
	}
	return int((PageSize - start) / uintptr(blockSize))
}

// newSlab initializes a slab of the given block size on a fresh page.
// Reused pages carry stale bytes, so every header field is written.
func newSlab(pa PageAllocator, blockSize int) *slab {
	if blockSize < int(unsafe.Sizeof(uintptr(0))) || slabCapacity(blockSize) == 0 {
		return nil
	}
	page := pa.AllocPage()
	if page == nil {
		return nil
	}
	s := (*slab)(page)
	s.nextMgr.Store(0)
	s.nextAll.Store(0)
	s.free.head.Store(0)
	s.bump.Store(0)
	s.allocCnt.Store(0)
	s.blockSize = uint32(blockSize)
	s.capacity = uint32(slabCapacity(blockSize))
	return s
}

// base returns the page start address.
func (s *slab) base() uintptr {
	return uintptr(unsafe.Pointer(s))
}

// alloc takes one block: first from the local free list, then by advancing
// the bump index.
func (s *slab) alloc() (uintptr, bool) {
	if p, ok := s.free.pop(); ok {
		s.allocCnt.Add(1)
		return p, true
	}
	for {
		idx := s.bump.Load()
		if idx >= s.capacity {
			return 0, false
		}
		if s.bump.CompareAndSwap(idx, idx+1) {
			p := s.base() + slabObjectStart(int(s.blockSize)) + uintptr(idx)*uintptr(s.blockSize)
			s.allocCnt.Add(1)
			return p, true
		}
	}
}

// allocBumpBatch advances the bump index by count, returning the base of a
// contiguous run of count blocks, or false if the run would not fit.
func (s *slab) allocBumpBatch(count int) (uintptr, bool) {
	for {
		idx := s.bump.Load()
		if int(idx)+count > int(s.capacity) {
			return 0, false
		}
		if s.bump.CompareAndSwap(idx, idx+uint32(count)) {
			p := s.base() + slabObjectStart(int(s.blockSize)) + uintptr(idx)*uintptr(s.blockSize)
			s.allocCnt.Add(uint32(count))
			return p, true
		}
	}
}

// freeBlock returns a block to the local free list, returning the
// allocation count as it was before the free (the full-to-available
// transition is prev == capacity).
func (s *slab) freeBlock(p uintptr) uint32 {
	s.free.push(p)
	return s.allocCnt.Add(^uint32(0)) + 1
}

func (s *slab) isFull() bool {
	return s.allocCnt.Load() >= s.capacity
}

func (s *slab) isEmpty() bool {
	return s.allocCnt.Load() == 0
}

func (s *slab) allocated() int {
	return int(s.allocCnt.Load())
}

// slabOf recovers the owning slab from any block pointer by masking to the
// page boundary.
func slabOf(p uintptr) *slab {
	return (*slab)(unsafe.Pointer(p &^ uintptr(PageSize-1)))
}
