//go:build unix

package ghostalloc

import (
	"sync"
	"unsafe"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sys/unix"
)

// Region allocation: anonymous private mappings, sized in whole pages. The
// registry remembers each mapping's slice so it can be unmapped later.

var (
	regionMu sync.Mutex
	regions  = make(map[uintptr][]byte)
)

func regionAllocate(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidLayout
	}
	size = alignUp(size, PageSize)
	span := startSpan("ghostalloc.region.map", attribute.Int("bytes", size))
	defer span.End()

	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, ErrOutOfMemory
	}
	base := uintptr(unsafe.Pointer(&b[0]))
	regionMu.Lock()
	regions[base] = b
	regionMu.Unlock()
	return unsafe.Pointer(base), nil
}

func regionFree(p unsafe.Pointer, size int) {
	if p == nil {
		return
	}
	regionMu.Lock()
	b, ok := regions[uintptr(p)]
	if ok {
		delete(regions, uintptr(p))
	}
	regionMu.Unlock()
	if ok {
		_ = unix.Munmap(b)
	}
}

// pageChunkCount is how many pages each mmap chunk carries: one is returned
// immediately, the rest seed the freelist.
const pageChunkCount = 64

type pageHeap struct {
	mu   sync.Mutex
	head uintptr // singly linked through each free page's first word
}

// The page freelist is process-global and pages are never returned to the
// OS: an intentional trade of resident memory for amortized syscall
// avoidance on long-lived server workloads.
var globalPageHeap pageHeap

// SyscallPages is the syscall-backed page allocator: 64-page anonymous
// mappings are carved into pages threaded on a process-global freelist.
type SyscallPages struct{}

// NewSyscallPages returns the syscall-backed page allocator.
func NewSyscallPages() *SyscallPages {
	return &SyscallPages{}
}

func (*SyscallPages) AllocPage() unsafe.Pointer {
	globalPageHeap.mu.Lock()
	if p := globalPageHeap.head; p != 0 {
		globalPageHeap.head = *(*uintptr)(unsafe.Pointer(p))
		globalPageHeap.mu.Unlock()
		return unsafe.Pointer(p)
	}
	globalPageHeap.mu.Unlock()

	chunk, err := regionAllocate(pageChunkCount * PageSize)
	if err != nil {
		return nil
	}
	base := uintptr(chunk)

	globalPageHeap.mu.Lock()
	for i := 1; i < pageChunkCount; i++ {
		p := base + uintptr(i)*PageSize
		*(*uintptr)(unsafe.Pointer(p)) = globalPageHeap.head
		globalPageHeap.head = p
	}
	globalPageHeap.mu.Unlock()
	return chunk
}

func (*SyscallPages) FreePage(p unsafe.Pointer) {
	if p == nil {
		return
	}
	globalPageHeap.mu.Lock()
	*(*uintptr)(p) = globalPageHeap.head
	globalPageHeap.head = uintptr(p)
	globalPageHeap.mu.Unlock()
}
