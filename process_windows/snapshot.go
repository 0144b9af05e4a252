//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"procmem/native"
	"procmem/process/snapshot"
)

// toolhelp is a snapshot.Source over a CreateToolhelp32Snapshot handle.
type toolhelp struct {
	kernel32 *native.Binder
	handle   uintptr
}

func (s *WindowsSystem) openSnapshot() (snapshot.Source, error) {
	r1, _, err := s.kernel32.Call("CreateToolhelp32Snapshot", windows.TH32CS_SNAPPROCESS, 0)
	if r1 == uintptr(windows.InvalidHandle) || r1 == 0 {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %v", err)
	}
	return &toolhelp{kernel32: s.kernel32, handle: r1}, nil
}

func (t *toolhelp) step(symbol string, e *snapshot.Entry) bool {
	buf := e.Bytes()
	r1, _, _ := t.kernel32.Call(symbol, t.handle, uintptr(unsafe.Pointer(&buf[0])))
	return r1 != 0
}

func (t *toolhelp) First(e *snapshot.Entry) bool {
	return t.step("Process32FirstW", e)
}

func (t *toolhelp) Next(e *snapshot.Entry) bool {
	return t.step("Process32NextW", e)
}

func (t *toolhelp) Close() error {
	r1, _, err := t.kernel32.Call("CloseHandle", t.handle)
	if r1 == 0 {
		return fmt.Errorf("CloseHandle on snapshot failed: %v", err)
	}
	return nil
}
