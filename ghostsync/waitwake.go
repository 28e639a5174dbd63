package ghostsync

import "sync/atomic"

// WaitOn blocks the calling goroutine while *addr == expected.
//
// Semantics match futex(2) FUTEX_WAIT: the value is re-checked atomically
// with enqueueing, so a wake between the caller's own check and the call is
// never lost. Spurious returns are permitted; callers must re-check their
// condition in a loop.
func WaitOn(addr *atomic.Uint32, expected uint32) {
	futexWait(addr, expected)
}

// WakeOne unblocks at most one goroutine blocked in WaitOn on addr.
func WakeOne(addr *atomic.Uint32) {
	futexWake(addr, 1)
}

// WakeAll unblocks every goroutine blocked in WaitOn on addr.
func WakeAll(addr *atomic.Uint32) {
	futexWake(addr, allWaiters)
}

const allWaiters = int(^uint(0) >> 1)
