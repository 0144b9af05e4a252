//go:build linux

package process_linux

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"procmem/process"
)

// process_vm_writev writes localBuf to remoteAddr of pid with one system call and returns
// the number of bytes written.
func (s *LinuxSystem) process_vm_writev(pid process.ProcessID, localBuf []byte, remoteAddr uintptr) (int, error) {
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	remoteIov := unix.RemoteIovec{
		Base: remoteAddr,
		Len:  len(localBuf),
	}

	n, _, err := s.kernel.Call("process_vm_writev",
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)
	runtime.KeepAlive(localBuf)
	runtime.KeepAlive(&localIov)
	runtime.KeepAlive(&remoteIov)

	if err != nil {
		return 0, mapErrno(err)
	}
	return int(n), nil
}

// WriteMemory writes data to the process memory at the specified address. Like
// WriteProcessMemory it needs both write and operation rights.
func (s *LinuxSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	op, err := s.lookup(h, process.VMWrite|process.VMOperation)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	remote, err := remoteAddress(addr)
	if err != nil {
		return 0, err
	}

	// Copy the payload so the caller cannot change it during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	n, err := s.process_vm_writev(op.pid, dataCopy, remote)
	if err != nil {
		op.log.Debugln("process_vm_writev at", addr.ToString(), "failed:", err)
		return 0, err
	}
	return n, nil
}
