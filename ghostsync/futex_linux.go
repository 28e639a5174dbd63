//go:build linux

package ghostsync

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux: delegate directly to futex(2). The private flag is safe because all
// waiters live in this process.

func futexWait(addr *atomic.Uint32, expected uint32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT|unix.FUTEX_PRIVATE_FLAG),
		uintptr(expected),
		0, 0, 0,
	)
	// EAGAIN (value changed) and EINTR both surface as spurious returns,
	// which the WaitOn contract allows.
}

func futexWake(addr *atomic.Uint32, n int) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE|unix.FUTEX_PRIVATE_FLAG),
		uintptr(n),
		0, 0, 0,
	)
}
