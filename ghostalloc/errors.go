package ghostalloc

import "errors"

var (
	// ErrOutOfMemory indicates the allocator (or the OS behind it) could
	// not satisfy the request. Reported by return, never by panic.
	ErrOutOfMemory = errors.New("ghostalloc: out of memory")

	// ErrSizeUnsupported indicates the request exceeds what the allocator
	// can represent (e.g. beyond the buddy heap's largest order).
	ErrSizeUnsupported = errors.New("ghostalloc: size unsupported")

	// ErrInvalidLayout indicates a zero/negative size or a non-power-of-two
	// alignment.
	ErrInvalidLayout = errors.New("ghostalloc: invalid layout")
)
