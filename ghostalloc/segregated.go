package ghostalloc

import (
	"runtime"
	"sync"
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel/attribute"
)

// cacheSet is the per-worker bundle of thread caches, one per size class.
// Sets circulate through a sync.Pool, the Go analog of the per-thread
// caches: a worker borrows a set for the duration of one operation, so a set
// is never touched by two goroutines at once.
type cacheSet struct {
	caches [numClasses]*ThreadCache
}

// Segregated is the global allocator: requests at or below maxClassSize are
// served by eight size-class managers fronted by pooled caches; larger
// requests round up to a power of two (minimum one page) and go straight to
// the region allocator.
type Segregated struct {
	managers [numClasses]*SizeClassManager
	logger   *logiface.Logger[logiface.Event]
	stats    Stats
	pool     sync.Pool // *cacheSet
}

// NewSegregated creates a segregated allocator. By default pages come from
// the syscall-backed page allocator.
func NewSegregated(opts ...Option) *Segregated {
	cfg := resolveAllocOptions(opts)
	a := &Segregated{logger: cfg.logger}
	for i := range a.managers {
		m := &SizeClassManager{
			blockSize: classBlockSize(i),
			pa:        cfg.pages,
			logger:    cfg.logger,
		}
		m.stats = &a.stats
		a.managers[i] = m
	}
	a.pool.New = func() any {
		set := &cacheSet{}
		for i := range set.caches {
			set.caches[i] = NewThreadCache(i, 2*fillCounts[i])
		}
		// sync.Pool may drop sets under GC pressure; flush their blocks
		// back to the managers rather than leaking them.
		runtime.SetFinalizer(set, func(s *cacheSet) {
			tok := ghostcell.StaticToken()
			for i, c := range s.caches {
				c.Flush(a.managers[i], tok)
			}
		})
		return set
	}
	return a
}

// Manager exposes the manager of a class index; used by tests and by callers
// that run dedicated workers with pinned ThreadCaches.
func (a *Segregated) Manager(class int) *SizeClassManager {
	return a.managers[class]
}

// Stats returns a snapshot of the telemetry counters.
func (a *Segregated) Stats() StatsSnapshot {
	return a.stats.snapshot()
}

// Allocate implements GhostAlloc.
func (a *Segregated) Allocate(tok ghostcell.Reader, l Layout) (unsafe.Pointer, error) {
	if !l.valid() {
		return nil, ErrInvalidLayout
	}
	size := l.effective()
	class, ok := sizeClassIndex(size)
	if !ok {
		return a.allocLarge(size)
	}

	set := a.pool.Get().(*cacheSet)
	cache := set.caches[class]
	p, hit := cache.Pop()
	if !hit {
		a.stats.cacheMisses.Add(1)
		cache.Fill(a.managers[class], tok, fillCounts[class])
		p, hit = cache.Pop()
	} else {
		a.stats.cacheHits.Add(1)
	}
	a.pool.Put(set)

	if !hit {
		// Cache refill failed; go to the manager directly.
		ptr, err := a.managers[class].Alloc(tok)
		if err != nil {
			return nil, err
		}
		a.stats.onAlloc(size)
		return ptr, nil
	}
	a.stats.onAlloc(size)
	return ptrAt(p), nil
}

// Deallocate implements GhostAlloc.
func (a *Segregated) Deallocate(tok ghostcell.Reader, ptr unsafe.Pointer, l Layout) {
	if ptr == nil {
		return
	}
	size := l.effective()
	class, ok := sizeClassIndex(size)
	if !ok {
		a.freeLarge(ptr, size)
		return
	}
	a.stats.onFree(size)

	set := a.pool.Get().(*cacheSet)
	cache := set.caches[class]
	if !cache.Push(uintptr(ptr)) {
		cache.Flush(a.managers[class], tok)
		cache.Push(uintptr(ptr))
	}
	a.pool.Put(set)
}

// Alloc is Allocate under the process-global brand.
func (a *Segregated) Alloc(l Layout) (unsafe.Pointer, error) {
	return a.Allocate(ghostcell.StaticToken(), l)
}

// Free is Deallocate under the process-global brand.
func (a *Segregated) Free(ptr unsafe.Pointer, l Layout) {
	a.Deallocate(ghostcell.StaticToken(), ptr, l)
}

func (a *Segregated) allocLarge(size int) (unsafe.Pointer, error) {
	size = nextPow2(size)
	if size < PageSize {
		size = PageSize
	}
	span := startSpan("ghostalloc.large.alloc", attribute.Int("bytes", size))
	defer span.End()

	p, err := regionAllocate(size)
	if err != nil {
		if a.logger != nil {
			a.logger.Warning().Int("bytes", size).Err(err).Log("large allocation failed")
		}
		return nil, err
	}
	a.stats.largeAllocs.Add(1)
	a.stats.onAlloc(size)
	return p, nil
}

func (a *Segregated) freeLarge(ptr unsafe.Pointer, size int) {
	size = nextPow2(size)
	if size < PageSize {
		size = PageSize
	}
	regionFree(ptr, size)
	a.stats.largeFrees.Add(1)
	a.stats.onFree(size)
}

// Close tears down every size-class manager, returning all pages. The
// caller must guarantee no allocations are live.
func (a *Segregated) Close() {
	for _, m := range a.managers {
		m.Close()
	}
}
