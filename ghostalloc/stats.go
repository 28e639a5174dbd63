package ghostalloc

import "sync/atomic"

// Stats holds the allocator telemetry counters. Updates are independent
// atomic adds (relaxed in spirit; exactness across fields is not implied by
// a snapshot taken under concurrent load).
type Stats struct {
	allocs         atomic.Uint64
	frees          atomic.Uint64
	bytesAllocated atomic.Uint64
	bytesFreed     atomic.Uint64
	largeAllocs    atomic.Uint64
	largeFrees     atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64
	slabsCreated   atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Allocs         uint64
	Frees          uint64
	BytesAllocated uint64
	BytesFreed     uint64
	LargeAllocs    uint64
	LargeFrees     uint64
	CacheHits      uint64
	CacheMisses    uint64
	SlabsCreated   uint64
}

func (s *Stats) onAlloc(size int) {
	s.allocs.Add(1)
	s.bytesAllocated.Add(uint64(size))
}

func (s *Stats) onFree(size int) {
	s.frees.Add(1)
	s.bytesFreed.Add(uint64(size))
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Allocs:         s.allocs.Load(),
		Frees:          s.frees.Load(),
		BytesAllocated: s.bytesAllocated.Load(),
		BytesFreed:     s.bytesFreed.Load(),
		LargeAllocs:    s.largeAllocs.Load(),
		LargeFrees:     s.largeFrees.Load(),
		CacheHits:      s.cacheHits.Load(),
		CacheMisses:    s.cacheMisses.Load(),
		SlabsCreated:   s.slabsCreated.Load(),
	}
}
