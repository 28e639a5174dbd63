package ghostalloc

import (
	"sync"
	"testing"
	"unsafe"

	ghostcell "github.com/joeycumines/go-ghostcell"
	"github.com/stretchr/testify/require"
)

// bookkeepingAlloc wraps a Segregated allocator but funds its own internal
// bookkeeping through package Malloc, exercising the recursion guard.
type bookkeepingAlloc struct {
	inner  *Segregated
	ledger []unsafe.Pointer
}

func (b *bookkeepingAlloc) Allocate(tok ghostcell.Reader, l Layout) (unsafe.Pointer, error) {
	// Reentrant call: must fall through to the system path, not recurse.
	note, err := Malloc(Layout{Size: 32, Align: 8})
	if err != nil {
		return nil, err
	}
	b.ledger = append(b.ledger, note)
	return b.inner.Allocate(tok, l)
}

func (b *bookkeepingAlloc) Deallocate(tok ghostcell.Reader, ptr unsafe.Pointer, l Layout) {
	b.inner.Deallocate(tok, ptr, l)
}

func TestDispatchUninstalled(t *testing.T) {
	l := Layout{Size: 64, Align: 8}
	p, err := Malloc(l)
	require.NoError(t, err)
	require.NotNil(t, p)
	*(*uint64)(p) = 0xdead
	Free(p, l)
}

func TestDispatchInstalledAllocator(t *testing.T) {
	a := newTestSegregated(t)
	tok := ghostcell.StaticToken()
	l := Layout{Size: 128, Align: 8}

	p := WithGlobalAllocator(a, tok, func() unsafe.Pointer {
		p, err := Malloc(l)
		require.NoError(t, err)
		Free(p, l)
		return p
	})
	require.NotNil(t, p)
	require.Positive(t, a.Stats().Allocs, "installed allocator must have served the call")

	// After the scope, Malloc routes to the system path again.
	before, _ := SystemCounters()
	q, err := Malloc(l)
	require.NoError(t, err)
	after, _ := SystemCounters()
	require.Equal(t, before+1, after)
	Free(q, l)
}

// A custom allocator whose own bookkeeping calls Malloc completes without
// infinite recursion, and the system-path counters show the reentrant calls.
func TestDispatchReentrancy(t *testing.T) {
	custom := &bookkeepingAlloc{inner: newTestSegregated(t)}
	tok := ghostcell.StaticToken()
	l := Layout{Size: 64, Align: 8}

	sysBefore, _ := SystemCounters()
	WithGlobalAllocator[any](custom, tok, func() any {
		for i := 0; i < 10; i++ {
			p, err := Malloc(l)
			require.NoError(t, err)
			Free(p, l)
		}
		return nil
	})
	sysAfter, _ := SystemCounters()
	require.GreaterOrEqual(t, sysAfter, sysBefore+10,
		"bookkeeping allocations must have hit the system path")
	require.Len(t, custom.ledger, 10)

	for _, note := range custom.ledger {
		Free(note, Layout{Size: 32, Align: 8})
	}
}

// Installations are goroutine-local: two goroutines with different
// allocators never route through each other, and a bystander goroutine with
// no installation stays on the system path throughout.
func TestDispatchPerGoroutineIsolation(t *testing.T) {
	a1 := newTestSegregated(t)
	a2 := newTestSegregated(t)
	tok := ghostcell.StaticToken()
	l := Layout{Size: 64, Align: 8}

	const rounds = 500
	var wg sync.WaitGroup
	run := func(a *Segregated) {
		defer wg.Done()
		WithGlobalAllocator[any](a, tok, func() any {
			for i := 0; i < rounds; i++ {
				p, err := Malloc(l)
				if err != nil {
					t.Error(err)
					return nil
				}
				Free(p, l)
			}
			return nil
		})
	}
	wg.Add(2)
	go run(a1)
	go run(a2)

	// Bystander with no installation.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			p, err := Malloc(l)
			if err != nil {
				t.Error(err)
				return
			}
			Free(p, l)
		}
	}()
	wg.Wait()

	s1, s2 := a1.Stats(), a2.Stats()
	require.Equal(t, uint64(rounds), s1.Allocs, "each scope must use its own allocator")
	require.Equal(t, uint64(rounds), s2.Allocs, "each scope must use its own allocator")
	require.Equal(t, s1.Allocs, s1.Frees)
	require.Equal(t, s2.Allocs, s2.Frees)

	// Both goroutines' installations must be gone.
	before, _ := SystemCounters()
	p, err := Malloc(l)
	require.NoError(t, err)
	after, _ := SystemCounters()
	require.Equal(t, before+1, after)
	Free(p, l)
}

func TestDispatchRestoresOnPanic(t *testing.T) {
	a := newTestSegregated(t)
	tok := ghostcell.StaticToken()

	func() {
		defer func() { _ = recover() }()
		WithGlobalAllocator[any](a, tok, func() any {
			panic("boom")
		})
	}()

	// The previous (nil) installation must have been restored.
	before, _ := SystemCounters()
	p, err := Malloc(Layout{Size: 8, Align: 8})
	require.NoError(t, err)
	after, _ := SystemCounters()
	require.Equal(t, before+1, after)
	Free(p, Layout{Size: 8, Align: 8})
}
