package ghostcell

import "sync/atomic"

type rcShared[T any] struct {
	strong atomic.Int64
	cell   *Cell[T]
}

// RefCounted is an atomically reference-counted branded pointer with
// copy-on-write mutation through the token.
//
// Clone and Drop adjust the strong count; MakeMut yields an exclusive view,
// cloning the value into a fresh allocation first if other handles share it.
type RefCounted[T any] struct {
	inner *rcShared[T]
}

// NewRefCounted allocates v under tok's brand with a strong count of one.
func NewRefCounted[T any](tok Reader, v T) RefCounted[T] {
	inner := &rcShared[T]{cell: NewCell(tok, v)}
	inner.strong.Store(1)
	return RefCounted[T]{inner: inner}
}

func (r *RefCounted[T]) live() {
	if r.inner == nil {
		panic("ghostcell: use of dropped RefCounted")
	}
}

// Clone returns a new handle sharing the allocation.
func (r *RefCounted[T]) Clone() RefCounted[T] {
	r.live()
	r.inner.strong.Add(1)
	return RefCounted[T]{inner: r.inner}
}

// StrongCount returns the number of live handles.
func (r *RefCounted[T]) StrongCount() int64 {
	r.live()
	return r.inner.strong.Load()
}

// Get returns a read-only view of the contents.
func (r *RefCounted[T]) Get(tok Reader) *T {
	r.live()
	return r.inner.cell.Borrow(tok)
}

// MakeMut returns an exclusive view of the contents.
//
// If this is the only handle, the view aliases the existing allocation.
// Otherwise cloner is invoked to produce a private copy, the handle is
// repointed at it, and the old allocation keeps the remaining shares.
func (r *RefCounted[T]) MakeMut(tok *Token, cloner func(*T) T) *T {
	r.live()
	if r.inner.strong.Load() == 1 {
		return r.inner.cell.BorrowMut(tok)
	}
	fresh := &rcShared[T]{cell: NewCell(tok, cloner(r.inner.cell.Borrow(tok)))}
	fresh.strong.Store(1)
	r.inner.strong.Add(-1)
	r.inner = fresh
	return r.inner.cell.BorrowMut(tok)
}

// Drop releases the handle, decrementing the strong count.
func (r *RefCounted[T]) Drop() {
	r.live()
	r.inner.strong.Add(-1)
	r.inner = nil
}
