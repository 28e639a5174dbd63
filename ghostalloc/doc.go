// Package ghostalloc implements the branded allocator family: a segregated
// slab allocator with per-worker caches and a syscall-backed page allocator,
// a power-of-two buddy heap with explicit compaction, a chunked bump arena,
// and a process-wide dispatch point that routes Malloc/Free through an
// installed allocator.
//
// Raw allocators hand out unsafe.Pointer values into page-granular regions
// that the Go garbage collector does not scan. The contract, shared by every
// entry point in this package, is that stored payloads must not contain
// pointers into the Go heap. This is the standard Go off-heap discipline;
// violating it does not fail fast, it corrupts.
//
// All allocators are token-gated: allocation and deallocation present a
// capability from the root ghostcell package, concurrent callers share a
// read capability, and operations that demand global exclusivity (such as
// BuddyHeap.Compact) demand the write token.
package ghostalloc
