//go:build windows

package process_windows

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"

	"procmem/process"
)

// ReadMemory reads len(buf) bytes at addr. A read that runs into an inaccessible page
// returns the bytes before it together with the error.
func (s *WindowsSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	log, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var bytesRead uintptr
	r1, _, err := s.kernel32.Call("ReadProcessMemory",
		uintptr(h),
		uintptr(addr),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&bytesRead)),
	)
	if r1 != 0 {
		return int(bytesRead), nil
	}
	if errors.Is(err, windows.ERROR_PARTIAL_COPY) && bytesRead > 0 {
		return int(bytesRead), mapError(err)
	}
	log.Debugln("ReadProcessMemory at", addr.ToString(), "failed:", err)
	return 0, mapError(err)
}

// WriteMemory writes data at addr with a single WriteProcessMemory call.
func (s *WindowsSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	log, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	// Copy the payload so the caller cannot change it during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	var bytesWritten uintptr
	r1, _, err := s.kernel32.Call("WriteProcessMemory",
		uintptr(h),
		uintptr(addr),
		uintptr(unsafe.Pointer(&dataCopy[0])),
		uintptr(len(dataCopy)),
		uintptr(unsafe.Pointer(&bytesWritten)),
	)
	if r1 == 0 {
		log.Debugln("WriteProcessMemory at", addr.ToString(), "failed:", err)
		return int(bytesWritten), mapError(err)
	}
	return int(bytesWritten), nil
}
