//go:build linux

package native

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SyscallTable declares the Linux system calls used for process and memory access.
var SyscallTable = []Signature{
	Func("pidfd_open", Int, Int, Uint32),
	Func("pidfd_send_signal", Int, Int, Int, Pointer, Uint32),
	Func("close", Int, Int),
	Func("process_vm_readv", Size, Int, Pointer, Size, Pointer, Size, Uint32),
	Func("process_vm_writev", Size, Int, Pointer, Size, Pointer, Size, Uint32),
}

var syscallNumbers = map[string]uintptr{
	"pidfd_open":        unix.SYS_PIDFD_OPEN,
	"pidfd_send_signal": unix.SYS_PIDFD_SEND_SIGNAL,
	"close":             unix.SYS_CLOSE,
	"process_vm_readv":  unix.SYS_PROCESS_VM_READV,
	"process_vm_writev": unix.SYS_PROCESS_VM_WRITEV,
}

// Syscalls is a Library whose symbols are kernel system calls.
type Syscalls struct{}

// Kernel returns a Binder over the system call table.
func Kernel() *Binder {
	return NewBinder(Syscalls{}, SyscallTable...)
}

func (Syscalls) Name() string {
	return "linux"
}

func (Syscalls) Resolve(symbol string) (Entry, error) {
	trap, ok := syscallNumbers[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no system call %q", ErrSymbolNotFound, symbol)
	}
	return syscallEntry(trap), nil
}

type syscallEntry uintptr

func (e syscallEntry) Call(args ...uintptr) (uintptr, uintptr, error) {
	var a [6]uintptr
	if len(args) > len(a) {
		return 0, 0, fmt.Errorf("%w: system calls take at most %d arguments", ErrArity, len(a))
	}
	copy(a[:], args)

	r1, r2, errno := unix.Syscall6(uintptr(e), a[0], a[1], a[2], a[3], a[4], a[5])
	if errno != 0 {
		return r1, r2, errno
	}
	return r1, r2, nil
}
