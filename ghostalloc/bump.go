package ghostalloc

import (
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

// Bump chunk sizing.
const (
	bumpInitialChunk = 1024
	bumpMaxChunk     = 1 << 20
)

// Bump is a branded chunked bump arena for heterogeneous values with
// identical lifetime.
//
// Allocation mutates the cursor, so it requires the write token; that also
// means the arena needs no internal synchronization. Individual values are
// never freed - Reset discards everything at once.
//
// The usual off-heap contract applies to BumpValue/BumpSlice payloads: no
// pointers into the Go heap.
type Bump struct {
	brand  ghostcell.ShToken
	chunks [][]byte // retired full chunks
	cur    []byte
	off    uintptr
}

// NewBump creates an empty arena branded by tok's brand.
func NewBump(tok ghostcell.Reader) *Bump {
	return &Bump{brand: ghostcell.AsShared(tok)}
}

// AllocLayout reserves l.Size bytes at l.Align within the arena.
func (b *Bump) AllocLayout(tok *ghostcell.Token, l Layout) unsafe.Pointer {
	b.check(tok)
	if !l.valid() {
		panic("ghostalloc: invalid layout")
	}
	if p := b.tryBump(l); p != nil {
		return p
	}

	// Retire the current chunk and grow.
	next := bumpInitialChunk
	if b.cur != nil {
		b.chunks = append(b.chunks, b.cur)
		next = len(b.cur) * 2
		if next > bumpMaxChunk {
			next = bumpMaxChunk
		}
	}
	if need := l.Size + l.Align; next < need {
		next = nextPow2(need)
	}
	b.cur = make([]byte, next)
	b.off = 0

	p := b.tryBump(l)
	if p == nil {
		panic("ghostalloc: bump allocation failed in fresh chunk")
	}
	return p
}

func (b *Bump) tryBump(l Layout) unsafe.Pointer {
	if b.cur == nil {
		return nil
	}
	base := uintptr(unsafe.Pointer(&b.cur[0]))
	aligned := alignUp(base+b.off, uintptr(l.Align))
	end := aligned + uintptr(l.Size)
	if end > base+uintptr(len(b.cur)) {
		return nil
	}
	b.off = end - base
	return ptrAt(aligned)
}

// Reset discards every allocation. Outstanding pointers into the arena
// become invalid; the write token requirement is what makes the caller
// answer for them.
func (b *Bump) Reset(tok *ghostcell.Token) {
	b.check(tok)
	b.chunks = nil
	b.cur = nil
	b.off = 0
}

// AllocatedChunks returns the number of chunks held (including the current
// one); used for sizing diagnostics.
func (b *Bump) AllocatedChunks() int {
	n := len(b.chunks)
	if b.cur != nil {
		n++
	}
	return n
}

// Allocate implements GhostAlloc. The capability must be the arena's write
// token; shared capabilities cannot bump the cursor safely.
func (b *Bump) Allocate(tok ghostcell.Reader, l Layout) (unsafe.Pointer, error) {
	mut, ok := tok.(*ghostcell.Token)
	if !ok {
		panic("ghostalloc: bump allocation requires the write token")
	}
	if !l.valid() {
		return nil, ErrInvalidLayout
	}
	return b.AllocLayout(mut, l), nil
}

// Deallocate implements GhostAlloc as a no-op: arena memory is reclaimed by
// Reset or by dropping the arena.
func (b *Bump) Deallocate(tok ghostcell.Reader, ptr unsafe.Pointer, l Layout) {
	b.check(tok)
}

func (b *Bump) check(tok ghostcell.Reader) {
	if !ghostcell.SameBrand(b.brand, tok) {
		panic("ghostalloc: token brand mismatch")
	}
}

// BumpValue copies v into the arena and returns a pointer to the copy.
// T must be free of Go-heap pointers.
func BumpValue[T any](b *Bump, tok *ghostcell.Token, v T) *T {
	p := (*T)(b.AllocLayout(tok, LayoutOf[T]()))
	*p = v
	return p
}

// BumpSlice copies src into the arena, returning the arena-backed slice.
// T must be free of Go-heap pointers.
func BumpSlice[T any](b *Bump, tok *ghostcell.Token, src []T) []T {
	if len(src) == 0 {
		return nil
	}
	elem := LayoutOf[T]()
	p := b.AllocLayout(tok, Layout{Size: elem.Size * len(src), Align: elem.Align})
	dst := unsafe.Slice((*T)(p), len(src))
	copy(dst, src)
	return dst
}
