package ghostalloc

import (
	"testing"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/stretchr/testify/require"
)

func TestBumpValues(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)

		x := BumpValue(b, tok, int64(7))
		y := BumpValue(b, tok, [3]byte{1, 2, 3})
		z := BumpValue(b, tok, 3.5)

		require.Equal(t, int64(7), *x)
		require.Equal(t, [3]byte{1, 2, 3}, *y)
		require.Equal(t, 3.5, *z)
		*x = 8
		require.Equal(t, int64(8), *x)
		return nil
	})
}

func TestBumpAlignment(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)
		_ = BumpValue(b, tok, byte(1)) // skew the cursor
		p := b.AllocLayout(tok, Layout{Size: 8, Align: 64})
		require.Zero(t, uintptr(p)%64)
		return nil
	})
}

func TestBumpChunkGrowth(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)
		// Overflow the initial chunk repeatedly.
		for i := 0; i < 100; i++ {
			b.AllocLayout(tok, Layout{Size: 100, Align: 8})
		}
		require.Greater(t, b.AllocatedChunks(), 1, "growth must retire chunks")

		// A request larger than the next chunk size still succeeds.
		p := b.AllocLayout(tok, Layout{Size: 1 << 21, Align: 8})
		require.NotNil(t, p)
		return nil
	})
}

func TestBumpSliceCopy(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)
		src := []uint32{10, 20, 30}
		dst := BumpSlice(b, tok, src)
		require.Equal(t, src, dst)
		src[0] = 99
		require.Equal(t, uint32(10), dst[0], "arena copy must be independent")
		return nil
	})
}

func TestBumpReset(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)
		BumpValue(b, tok, 1)
		require.Equal(t, 1, b.AllocatedChunks())
		b.Reset(tok)
		require.Zero(t, b.AllocatedChunks())
		BumpValue(b, tok, 2) // usable again
		return nil
	})
}

func TestBumpGhostAllocContract(t *testing.T) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		b := NewBump(tok)
		var a GhostAlloc = b

		p, err := a.Allocate(tok, Layout{Size: 16, Align: 8})
		require.NoError(t, err)
		require.NotNil(t, p)
		a.Deallocate(tok, p, Layout{Size: 16, Align: 8}) // no-op

		defer func() {
			if recover() == nil {
				t.Fatal("shared capability must not bump")
			}
		}()
		a.Allocate(tok.Shared(), Layout{Size: 16, Align: 8})
		return nil
	})
}
