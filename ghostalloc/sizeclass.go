package ghostalloc

// Size classes handled by the segregated allocator. Requests above
// maxClassSize take the large-region path.
const (
	numClasses   = 8
	minClassSize = 16
	maxClassSize = 2048
)

// fillCounts is how many blocks a thread cache requests per refill, by
// class: small blocks batch aggressively, large ones conservatively.
var fillCounts = [numClasses]int{16, 16, 16, 16, 8, 8, 4, 2}

// classBlockSize returns the block size of a class index.
func classBlockSize(class int) int {
	return minClassSize << class
}

// sizeClassIndex maps a request size to a class index, or false when the
// request exceeds the largest class.
func sizeClassIndex(size int) (int, bool) {
	if size <= 0 {
		return 0, false
	}
	if size > maxClassSize {
		return 0, false
	}
	if size < minClassSize {
		size = minClassSize
	}
	return log2(nextPow2(size)) - log2(minClassSize), true
}
