package ghostsync

import (
	"sync/atomic"

	ghostcell "github.com/joeycumines/go-ghostcell"
)

// OnceLock states.
const (
	onceEmpty = 0
	onceBusy  = 1
	onceReady = 2
)

// OnceLock is a thread-safe branded set-once cell.
//
// Unlike ghostcell.OnceCell, initialization may race: the state byte
// serializes writers, and losers of the race park on the wait/wake primitive
// until the winner publishes.
type OnceLock[T any] struct {
	state atomic.Uint32
	brand ghostcell.ShToken
	value T
}

// NewOnceLock creates an empty lock branded by tok's brand.
func NewOnceLock[T any](tok ghostcell.Reader) *OnceLock[T] {
	return &OnceLock[T]{brand: ghostcell.AsShared(tok)}
}

func (l *OnceLock[T]) check(tok ghostcell.Reader) {
	if !ghostcell.SameBrand(l.brand, tok) {
		panic("ghostsync: token brand mismatch")
	}
}

// IsInitialized reports whether a value has been published.
func (l *OnceLock[T]) IsInitialized(tok ghostcell.Reader) bool {
	l.check(tok)
	return l.state.Load() == onceReady
}

// Get returns the value if initialized.
func (l *OnceLock[T]) Get(tok ghostcell.Reader) (*T, bool) {
	l.check(tok)
	if l.state.Load() != onceReady {
		return nil, false
	}
	return &l.value, true
}

// Set publishes v if the cell is empty. Returns false (rejecting v) if a
// value was already published or is being published.
func (l *OnceLock[T]) Set(tok ghostcell.Reader, v T) bool {
	l.check(tok)
	if !l.state.CompareAndSwap(onceEmpty, onceBusy) {
		return false
	}
	l.value = v
	l.state.Store(onceReady)
	WakeAll(&l.state)
	return true
}

// GetOrInit returns the value, initializing it with f if needed. If another
// goroutine is mid-initialization, the caller parks until it finishes.
func (l *OnceLock[T]) GetOrInit(tok ghostcell.Reader, f func() T) *T {
	l.check(tok)
	for {
		switch l.state.Load() {
		case onceReady:
			return &l.value
		case onceEmpty:
			if l.state.CompareAndSwap(onceEmpty, onceBusy) {
				l.value = f()
				l.state.Store(onceReady)
				WakeAll(&l.state)
				return &l.value
			}
		default:
			WaitOn(&l.state, onceBusy)
		}
	}
}
