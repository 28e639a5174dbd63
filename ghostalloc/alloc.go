package ghostalloc

import (
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

// GhostAlloc is the branded allocator interface consumed by the collection
// layers and the global dispatch point.
//
// Allocate and Deallocate are safe for concurrent use with shared read
// capabilities unless the implementation documents otherwise (the bump arena
// requires the write token, since allocation mutates its cursor).
type GhostAlloc interface {
	// Allocate returns a pointer to l.Size bytes aligned to l.Align, or
	// ErrOutOfMemory / ErrSizeUnsupported / ErrInvalidLayout.
	Allocate(tok ghostcell.Reader, l Layout) (unsafe.Pointer, error)

	// Deallocate returns an allocation to the allocator. ptr and l must
	// match a previous Allocate on the same allocator.
	Deallocate(tok ghostcell.Reader, ptr unsafe.Pointer, l Layout)
}
