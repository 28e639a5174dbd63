package ghostsync

import (
	"sync/atomic"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

// Mutex states.
const (
	mutexUnlocked  = 0
	mutexLocked    = 1
	mutexContended = 2
)

// Mutex guards a write token, turning the documented single-writer contract
// into a runtime guarantee.
//
// The token is surrendered to the mutex at construction; Lock yields it to
// exactly one goroutine at a time, and Unlock takes it back. This is the
// baton pattern for sharing mutable access to a brand across goroutines.
//
// The implementation is the classic 3-state futex mutex: an uncontended
// lock/unlock is one CAS, and waiters park in the kernel (or the portable
// parking table) rather than spinning.
type Mutex struct {
	state atomic.Uint32
	tok   *ghostcell.Token
}

// NewMutex wraps tok. The caller must not use tok directly afterwards.
func NewMutex(tok *ghostcell.Token) *Mutex {
	if tok == nil {
		panic("ghostsync: nil token")
	}
	return &Mutex{tok: tok}
}

// Lock blocks until the token is available and returns it.
//
// The returned token is valid until the matching Unlock.
func (m *Mutex) Lock() *ghostcell.Token {
	if !m.state.CompareAndSwap(mutexUnlocked, mutexLocked) {
		m.lockSlow()
	}
	return m.tok
}

// TryLock attempts to acquire the token without blocking.
func (m *Mutex) TryLock() (*ghostcell.Token, bool) {
	if m.state.CompareAndSwap(mutexUnlocked, mutexLocked) {
		return m.tok, true
	}
	return nil, false
}

func (m *Mutex) lockSlow() {
	state := m.state.Load()
	for {
		if state == mutexUnlocked {
			// Acquire as contended: other waiters may still be parked, so
			// the matching Unlock must wake the next one.
			if m.state.CompareAndSwap(mutexUnlocked, mutexContended) {
				return
			}
			state = m.state.Load()
			continue
		}
		if state == mutexLocked {
			if m.state.CompareAndSwap(mutexLocked, mutexContended) {
				state = mutexContended
			} else {
				state = m.state.Load()
				continue
			}
		}
		if state == mutexContended {
			WaitOn(&m.state, mutexContended)
			state = m.state.Load()
		}
	}
}

// Unlock releases the token. Must be called by the goroutine that holds it;
// the token obtained from Lock must not be used after Unlock.
func (m *Mutex) Unlock() {
	if m.state.Swap(mutexUnlocked) == mutexContended {
		WakeOne(&m.state)
	}
}
