package ghostalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestHeapPagesAlignment(t *testing.T) {
	pa := NewHeapPages()
	seen := map[unsafe.Pointer]bool{}
	for i := 0; i < 16; i++ {
		p := pa.AllocPage()
		require.NotNil(t, p)
		require.Zero(t, uintptr(p)%PageSize, "pages must be page-aligned")
		require.False(t, seen[p], "live pages must be distinct")
		seen[p] = true
	}
	for p := range seen {
		pa.FreePage(p)
	}
}

func TestHeapPagesWriteRead(t *testing.T) {
	pa := NewHeapPages()
	p := pa.AllocPage()
	defer pa.FreePage(p)

	buf := unsafe.Slice((*byte)(p), PageSize)
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := range buf {
		require.Equal(t, byte(i), buf[i])
	}
}

func TestSyscallPagesReuse(t *testing.T) {
	pa := NewSyscallPages()
	p := pa.AllocPage()
	require.NotNil(t, p)
	require.Zero(t, uintptr(p)%PageSize)

	// Freed pages return through the process freelist, not to the OS; the
	// very next allocation must reuse the page.
	pa.FreePage(p)
	q := pa.AllocPage()
	require.Equal(t, p, q)

	buf := unsafe.Slice((*byte)(q), PageSize)
	buf[0], buf[PageSize-1] = 0xAA, 0x55
	require.Equal(t, byte(0xAA), buf[0])
	require.Equal(t, byte(0x55), buf[PageSize-1])
	pa.FreePage(q)
}
