package ghostalloc

// Size constants for cache-line padding.
const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 64 bytes is standard for x86-64; 128 for Apple Silicon and other
	// ARM64. We use 128 to satisfy the largest common alignment.
	sizeOfCacheLine = 128

	// sizeOfAtomicUint64 is the size of an atomic.Uint64 variable.
	sizeOfAtomicUint64 = 8
)
