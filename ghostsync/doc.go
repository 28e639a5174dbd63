// Package ghostsync provides the lock-free concurrency substrate for the
// branded toolkit: index-based worklists (Treiber stack, Chase-Lev deque),
// bounded MPMC and MPSC queues, an atomic bitset, a futex-shaped wait/wake
// primitive, and token-aware synchronization (Mutex, OnceLock).
//
// Everything here is allocation-free on the hot path and safe for use from
// any number of goroutines, subject to each type's documented role split
// (e.g. the deque's single owner).
package ghostsync
