package ghostalloc

import (
	"math"
	"sync/atomic"
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel/attribute"
)

// Buddy heap constants. Blocks range from buddyMinBlock up to
// buddyMinBlock << (buddyLevels-1).
const (
	buddyMinBlock = 16
	buddyLevels   = 32

	buddyNone = math.MaxUint32
)

// Per-order free-list packing: low 32 bits block index (or buddyNone), high
// 32 bits ABA tag. Next links are stored packed in each free block's first
// word.
func buddyPack(idx uint32, tag uint32) uint64 {
	return uint64(tag)<<32 | uint64(idx)
}

func buddyUnpack(v uint64) (idx uint32, tag uint32) {
	return uint32(v), uint32(v >> 32)
}

type buddyHead struct {
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte
}

// BuddyHeap is a branded power-of-two buddy allocator over one contiguous
// region.
//
// Shared capabilities allocate and deallocate lock-free: allocation pops and
// splits through the per-order tagged free lists, deallocation pushes onto
// the block's stored order without coalescing. The write token unlocks
// Compact, which coalesces buddy pairs and rebuilds the lists.
type BuddyHeap struct {
	brand  ghostcell.ShToken
	logger *logiface.Logger[logiface.Event]

	mem       []byte // backing storage, aligned carve below
	base      uintptr
	capacity  int
	levels    int
	numBlocks int

	freeHeads []buddyHead
	orders    []uint8 // per min-block slot; guarded by block ownership
}

// NewBuddyHeap creates a heap of the given capacity (rounded up to a power
// of two, minimum one min-block) branded by tok's brand.
func NewBuddyHeap(tok ghostcell.Reader, capacity int, opts ...Option) *BuddyHeap {
	cfg := resolveAllocOptions(opts)
	if capacity < buddyMinBlock {
		capacity = buddyMinBlock
	}
	capacity = nextPow2(capacity)

	h := &BuddyHeap{
		brand:     ghostcell.AsShared(tok),
		logger:    cfg.logger,
		mem:       make([]byte, capacity+PageSize),
		capacity:  capacity,
		numBlocks: capacity / buddyMinBlock,
	}
	h.base = alignUp(uintptr(unsafe.Pointer(&h.mem[0])), PageSize)
	h.levels = log2(capacity/buddyMinBlock) + 1
	if h.levels > buddyLevels {
		h.levels = buddyLevels
	}
	h.freeHeads = make([]buddyHead, h.levels)
	for i := range h.freeHeads {
		h.freeHeads[i].v.Store(buddyPack(buddyNone, 0))
	}
	h.orders = make([]uint8, h.numBlocks)

	// Seed: the whole region is one maximal free block.
	top := h.levels - 1
	h.orders[0] = uint8(top)
	h.storeNext(0, buddyPack(buddyNone, 0))
	h.freeHeads[top].v.Store(buddyPack(0, 0))
	return h
}

func (h *BuddyHeap) blockAddr(idx int) uintptr {
	return h.base + uintptr(idx)*buddyMinBlock
}

func (h *BuddyHeap) loadNext(idx int) uint64 {
	return (*(*atomic.Uint64)(ptrAt(h.blockAddr(idx)))).Load()
}

func (h *BuddyHeap) storeNext(idx int, v uint64) {
	(*(*atomic.Uint64)(ptrAt(h.blockAddr(idx)))).Store(v)
}

// pushFree links block idx onto the free list of the given order.
func (h *BuddyHeap) pushFree(order, idx int) {
	head := &h.freeHeads[order].v
	for {
		old := head.Load()
		_, tag := buddyUnpack(old)
		h.storeNext(idx, old)
		if head.CompareAndSwap(old, buddyPack(uint32(idx), tag+1)) {
			return
		}
	}
}

// popFree unlinks a block from the free list of the given order.
func (h *BuddyHeap) popFree(order int) (int, bool) {
	head := &h.freeHeads[order].v
	for {
		old := head.Load()
		idx, tag := buddyUnpack(old)
		if idx == buddyNone {
			return 0, false
		}
		next := h.loadNext(int(idx))
		nextIdx, _ := buddyUnpack(next)
		if head.CompareAndSwap(old, buddyPack(nextIdx, tag+1)) {
			return int(idx), true
		}
	}
}

// Allocate implements GhostAlloc.
func (h *BuddyHeap) Allocate(tok ghostcell.Reader, l Layout) (unsafe.Pointer, error) {
	h.check(tok)
	if !l.valid() {
		return nil, ErrInvalidLayout
	}
	size := l.effective()
	if size < buddyMinBlock {
		size = buddyMinBlock
	}
	size = nextPow2(size)
	order := log2(size / buddyMinBlock)
	if order >= h.levels {
		return nil, ErrSizeUnsupported
	}

	for k := order; k < h.levels; k++ {
		idx, ok := h.popFree(k)
		if !ok {
			continue
		}
		// Split down to the requested order; each split frees the upper
		// buddy at the next order down.
		for cur := k; cur > order; cur-- {
			split := cur - 1
			buddy := idx + (1 << split)
			h.orders[idx] = uint8(split)
			h.orders[buddy] = uint8(split)
			h.pushFree(split, buddy)
		}
		h.orders[idx] = uint8(order)
		return ptrAt(h.blockAddr(idx)), nil
	}
	return nil, ErrOutOfMemory
}

// Deallocate implements GhostAlloc: the block returns to the free list of
// its stored order. No coalescing happens here; Compact does that.
func (h *BuddyHeap) Deallocate(tok ghostcell.Reader, ptr unsafe.Pointer, l Layout) {
	h.check(tok)
	if ptr == nil {
		return
	}
	offset := uintptr(ptr) - h.base
	if offset >= uintptr(h.capacity) {
		return
	}
	idx := int(offset / buddyMinBlock)
	h.pushFree(int(h.orders[idx]), idx)
}

// Compact coalesces free buddy pairs and rebuilds the per-order lists.
// Requires the write token: no concurrent allocation or deallocation may be
// in flight.
func (h *BuddyHeap) Compact(tok *ghostcell.Token) {
	h.check(tok)
	span := startSpan("ghostalloc.buddy.compact", attribute.Int("capacity", h.capacity))
	defer span.End()

	isFree := make([]bool, h.numBlocks)

	// Drain every list into the bitmap.
	for k := 0; k < h.levels; k++ {
		idx, _ := buddyUnpack(h.freeHeads[k].v.Load())
		h.freeHeads[k].v.Store(buddyPack(buddyNone, 0))
		for idx != buddyNone {
			isFree[idx] = true
			next := h.loadNext(int(idx))
			idx, _ = buddyUnpack(next)
		}
	}

	// Coalesce bottom-up: a free pair of order-k buddies becomes one free
	// order-k+1 block at the lower index.
	merged := 0
	for k := 0; k < h.levels-1; k++ {
		step := 1 << k
		for i := 0; i < h.numBlocks; i += step {
			if !isFree[i] || int(h.orders[i]) != k {
				continue
			}
			buddy := i ^ step
			if buddy >= h.numBlocks || !isFree[buddy] || int(h.orders[buddy]) != k {
				continue
			}
			isFree[i] = false
			isFree[buddy] = false
			lower := i & buddy
			isFree[lower] = true
			h.orders[lower] = uint8(k + 1)
			merged++
		}
	}

	// Rebuild lists from surviving aligned free blocks.
	for i := 0; i < h.numBlocks; i++ {
		if isFree[i] {
			order := int(h.orders[i])
			if i%(1<<order) == 0 {
				h.pushFree(order, i)
			}
		}
	}

	if h.logger != nil {
		h.logger.Debug().Int("merged", merged).Log("buddy compaction")
	}
}

// freeCount returns the number of free blocks at an order; used by tests.
func (h *BuddyHeap) freeCount(order int) int {
	n := 0
	idx, _ := buddyUnpack(h.freeHeads[order].v.Load())
	for idx != buddyNone {
		n++
		next := h.loadNext(int(idx))
		idx, _ = buddyUnpack(next)
	}
	return n
}

func (h *BuddyHeap) check(tok ghostcell.Reader) {
	if !ghostcell.SameBrand(h.brand, tok) {
		panic("ghostalloc: token brand mismatch")
	}
}
