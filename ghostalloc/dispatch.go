package ghostalloc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/petermattis/goid"
)

// The dispatch trampoline routes process-wide Malloc/Free calls through an
// installed branded allocator while one is active. Both pieces of dispatch
// state are goroutine-local, keyed by goroutine id: the currently installed
// allocator AND the in-allocator recursion flag. An installation made on one
// goroutine is invisible to every other goroutine, so concurrent scopes with
// different allocators cannot route each other's calls or clobber each
// other's restoration.
//
// Three paths exist:
//
//  1. No allocator installed on this goroutine: the system path (a
//     Go-heap-backed registry).
//  2. Allocator installed: the branded allocator, guarded against recursion.
//  3. Recursion (the installed allocator's own bookkeeping calls Malloc on
//     the same goroutine): the system path, breaking the cycle.

type installedAlloc struct {
	alloc GhostAlloc
	tok   ghostcell.ShToken
}

var (
	currentAlloc sync.Map // goroutine id -> *installedAlloc
	dispatchBusy sync.Map // goroutine id -> struct{}

	systemMu     sync.Mutex
	systemHeld   = make(map[uintptr][]byte)
	systemAllocs atomic.Uint64
	systemFrees  atomic.Uint64
)

// loadInstalled returns the calling goroutine's installation, if any.
func loadInstalled(gid int64) *installedAlloc {
	v, ok := currentAlloc.Load(gid)
	if !ok {
		return nil
	}
	return v.(*installedAlloc)
}

// WithGlobalAllocator installs alloc as the calling goroutine's process
// allocator for the duration of f, restoring the previous installation on
// any exit path (including panic). The installation does not propagate to
// goroutines spawned by f; they dispatch through their own installations.
func WithGlobalAllocator[R any](alloc GhostAlloc, tok ghostcell.Reader, f func() R) R {
	gid := goid.Get()
	prev := loadInstalled(gid)
	currentAlloc.Store(gid, &installedAlloc{alloc: alloc, tok: ghostcell.AsShared(tok)})
	defer func() {
		if prev != nil {
			currentAlloc.Store(gid, prev)
		} else {
			currentAlloc.Delete(gid)
		}
	}()
	return f()
}

// Malloc allocates through the goroutine's installed allocator, or through
// the system path when none is installed or the call is reentrant.
func Malloc(l Layout) (unsafe.Pointer, error) {
	gid := goid.Get()
	inst := loadInstalled(gid)
	if inst == nil {
		return systemAlloc(l)
	}
	if _, loaded := dispatchBusy.LoadOrStore(gid, struct{}{}); loaded {
		return systemAlloc(l)
	}
	defer dispatchBusy.Delete(gid)
	return inst.alloc.Allocate(inst.tok, l)
}

// Free releases an allocation obtained from Malloc. System-path allocations
// are recognized by address and routed back to the system registry even
// while an allocator is installed.
func Free(p unsafe.Pointer, l Layout) {
	if p == nil {
		return
	}
	if systemFree(p) {
		return
	}
	gid := goid.Get()
	inst := loadInstalled(gid)
	if inst == nil {
		return
	}
	if _, loaded := dispatchBusy.LoadOrStore(gid, struct{}{}); loaded {
		return
	}
	defer dispatchBusy.Delete(gid)
	inst.alloc.Deallocate(inst.tok, p, l)
}

// SystemCounters returns the number of system-path allocations and frees,
// for observability and tests.
func SystemCounters() (allocs, frees uint64) {
	return systemAllocs.Load(), systemFrees.Load()
}

func systemAlloc(l Layout) (unsafe.Pointer, error) {
	if !l.valid() {
		return nil, ErrInvalidLayout
	}
	buf := make([]byte, l.Size+l.Align)
	base := alignUp(uintptr(unsafe.Pointer(&buf[0])), uintptr(l.Align))
	systemMu.Lock()
	systemHeld[base] = buf
	systemMu.Unlock()
	systemAllocs.Add(1)
	return ptrAt(base), nil
}

func systemFree(p unsafe.Pointer) bool {
	systemMu.Lock()
	_, ok := systemHeld[uintptr(p)]
	if ok {
		delete(systemHeld, uintptr(p))
	}
	systemMu.Unlock()
	if ok {
		systemFrees.Add(1)
	}
	return ok
}
