package ghostalloc

import (
	"math/bits"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Layout describes an allocation request: a size in bytes and a power-of-two
// alignment.
type Layout struct {
	Size  int
	Align int
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	var v T
	return Layout{Size: int(unsafe.Sizeof(v)), Align: int(unsafe.Alignof(v))}
}

// valid reports whether the layout is usable: positive size, power-of-two
// alignment.
func (l Layout) valid() bool {
	return l.Size > 0 && l.Align > 0 && l.Align&(l.Align-1) == 0
}

// effective returns the size actually allocated: alignment is satisfied by
// rounding the request up to at least the alignment.
func (l Layout) effective() int {
	if l.Align > l.Size {
		return l.Align
	}
	return l.Size
}

// alignUp rounds v up to the next multiple of align (a power of two).
func alignUp[T constraints.Integer](v, align T) T {
	return (v + align - 1) &^ (align - 1)
}

// nextPow2 returns the smallest power of two >= v (v > 0).
func nextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

// ptrAt converts a block address back to a pointer. Centralized so the
// uintptr-to-pointer conversions the off-heap allocators rely on are easy to
// audit.
//
//nolint:govet // off-heap addresses, never GC-managed
func ptrAt(p uintptr) unsafe.Pointer { return unsafe.Pointer(p) }

// log2 returns floor(log2(v)) for power-of-two v.
func log2(v int) int {
	return bits.Len(uint(v)) - 1
}
