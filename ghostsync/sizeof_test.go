package ghostsync

import (
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestSizeOfConstants(t *testing.T) {
	if s := unsafe.Sizeof(atomic.Uint64{}); s != sizeOfAtomicUint64 {
		t.Fatalf("atomic.Uint64 is %d bytes, constant says %d", s, sizeOfAtomicUint64)
	}
	if sizeOfCacheLine < 64 || sizeOfCacheLine%64 != 0 {
		t.Fatalf("cache line constant %d is not a multiple of 64", sizeOfCacheLine)
	}
}
