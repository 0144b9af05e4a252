//go:build linux

package process_linux

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"procmem/process"
)

// process_vm_readv reads len(localBuf) bytes at remoteAddr of pid with one system call and
// returns the number of bytes transferred.
func (s *LinuxSystem) process_vm_readv(pid process.ProcessID, localBuf []byte, remoteAddr uintptr) (int, error) {
	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: remoteAddr,
		Len:  len(localBuf),
	}

	n, _, err := s.kernel.Call("process_vm_readv",
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)
	runtime.KeepAlive(localBuf)
	runtime.KeepAlive(&localIov)
	runtime.KeepAlive(&remoteIov)

	if err != nil {
		return 0, mapErrno(err)
	}
	return int(n), nil
}

// ReadMemory reads memory from the process at the specified address. A read that runs into
// an unmapped page returns the bytes before it.
func (s *LinuxSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	op, err := s.lookup(h, process.VMRead)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	remote, err := remoteAddress(addr)
	if err != nil {
		return 0, err
	}

	n, err := s.process_vm_readv(op.pid, buf, remote)
	if err != nil {
		op.log.Debugln("process_vm_readv at", addr.ToString(), "failed:", err)
		return 0, err
	}
	return n, nil
}
