// Package ghostcell implements token-gated interior mutability for Go.
//
// A Token is a capability: it carries a brand (a process-unique identity
// minted per Scope call), and every branded cell records the brand of the
// token that created it. Reads require any capability with a matching brand,
// while writes require the one read-write Token for that brand. Because the
// Token is the only mutable capability for its brand, holding it proves that
// no other writer exists, for every cell of the brand at once - including
// cells woven into shared or cyclic structures.
//
// Go cannot enforce the aliasing rules of this model at compile time, so the
// package enforces them at runtime: presenting a token of the wrong brand
// panics, as does violating RefCell's borrow discipline. The single-writer
// rule for the Token itself is a documented contract, the same contract Go
// already applies to values guarded by a sync.Mutex; see ghostsync.Mutex for
// a runtime-enforced handover of the write capability between goroutines.
//
// See also [github.com/joeycumines/go-ghostcell/ghostsync], for the lock-free
// concurrency substrate, and [github.com/joeycumines/go-ghostcell/ghostalloc],
// for the branded allocators.
package ghostcell
