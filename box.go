package ghostcell

// UniqueBox is an exclusively owned branded allocation.
//
// The box is a linear handle: Drop it when done, or convert it with
// IntoShared. Using a dropped or converted box panics. The backing storage is
// a Cell so that IntoShared can hand the same allocation to SharedFraction
// without copying.
type UniqueBox[T any] struct {
	cell *Cell[T]
}

// NewUniqueBox allocates v under tok's brand with unique ownership.
func NewUniqueBox[T any](tok Reader, v T) UniqueBox[T] {
	return UniqueBox[T]{cell: NewCell(tok, v)}
}

// Borrow returns a read-only view of the contents.
func (b *UniqueBox[T]) Borrow(tok Reader) *T {
	if b.cell == nil {
		panic("ghostcell: use of dropped UniqueBox")
	}
	return b.cell.Borrow(tok)
}

// BorrowMut returns an exclusive view of the contents.
func (b *UniqueBox[T]) BorrowMut(tok *Token) *T {
	if b.cell == nil {
		panic("ghostcell: use of dropped UniqueBox")
	}
	return b.cell.BorrowMut(tok)
}

// IntoShared converts the box into a full fractional share (num = den = d),
// reusing the allocation. The box is consumed.
func (b *UniqueBox[T]) IntoShared(d uint32) SharedFraction[T] {
	if b.cell == nil {
		panic("ghostcell: use of dropped UniqueBox")
	}
	if d == 0 {
		panic("ghostcell: zero denominator")
	}
	cell := b.cell
	b.cell = nil
	return SharedFraction[T]{cell: cell, num: d, den: d}
}

// Drop releases the box. The contents become unreachable through it.
func (b *UniqueBox[T]) Drop() {
	if b.cell == nil {
		panic("ghostcell: UniqueBox dropped twice")
	}
	b.cell = nil
}
