package ghostalloc

import (
	"testing"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

func BenchmarkSegregatedAllocFree(b *testing.B) {
	a := NewSegregated(WithPageAllocator(NewHeapPages()))
	defer a.Close()
	tok := ghostcell.StaticToken()
	l := Layout{Size: 64, Align: 8}

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p, err := a.Allocate(tok, l)
			if err != nil {
				b.Fatal(err)
			}
			a.Deallocate(tok, p, l)
		}
	})
}

func BenchmarkManagerAllocFree(b *testing.B) {
	m := NewSizeClassManager(64, WithPageAllocator(NewHeapPages()))
	defer m.Close()
	tok := ghostcell.StaticToken()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p, err := m.Alloc(tok)
			if err != nil {
				b.Fatal(err)
			}
			m.Free(tok, p)
		}
	})
}

func BenchmarkBuddyAllocFree(b *testing.B) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		h := NewBuddyHeap(tok, 8<<20)
		l := Layout{Size: 64, Align: 8}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			p, err := h.Allocate(tok, l)
			if err != nil {
				b.Fatal(err)
			}
			h.Deallocate(tok, p, l)
		}
		return nil
	})
}

func BenchmarkBumpAlloc(b *testing.B) {
	ghostcell.Scope(func(tok *ghostcell.Token) any {
		arena := NewBump(tok)
		l := Layout{Size: 48, Align: 8}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			arena.AllocLayout(tok, l)
			if i%100000 == 99999 {
				arena.Reset(tok)
			}
		}
		return nil
	})
}
