//go:build windows

package native

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Kernel32Table declares the kernel32 entry points used for process and memory access.
var Kernel32Table = []Signature{
	Func("CreateToolhelp32Snapshot", Handle, Uint32, Uint32),
	Func("Process32FirstW", Bool, Handle, Pointer),
	Func("Process32NextW", Bool, Handle, Pointer),
	Func("OpenProcess", Handle, Uint32, Bool, Uint32),
	Func("CloseHandle", Bool, Handle),
	Func("ReadProcessMemory", Bool, Handle, Address, Pointer, Size, Pointer),
	Func("WriteProcessMemory", Bool, Handle, Address, Pointer, Size, Pointer),
	Func("VirtualQueryEx", Size, Handle, Address, Pointer, Size),
}

// DLL is a Library backed by a system DLL loaded from the system directory.
type DLL struct {
	dll *windows.LazyDLL
}

// NewDLL returns a Library for the named system DLL. Nothing is loaded until the first Resolve.
func NewDLL(name string) *DLL {
	return &DLL{dll: windows.NewLazySystemDLL(name)}
}

// Kernel32 returns a Binder over kernel32.dll with Kernel32Table.
func Kernel32() *Binder {
	return NewBinder(NewDLL("kernel32.dll"), Kernel32Table...)
}

func (d *DLL) Name() string {
	return d.dll.Name
}

func (d *DLL) Resolve(symbol string) (Entry, error) {
	proc := d.dll.NewProc(symbol)
	if err := proc.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSymbolNotFound, err)
	}
	return dllEntry{proc: proc}, nil
}

type dllEntry struct {
	proc *windows.LazyProc
}

func (e dllEntry) Call(args ...uintptr) (uintptr, uintptr, error) {
	r1, r2, err := e.proc.Call(args...)
	if errno, ok := err.(windows.Errno); ok && errno == 0 {
		err = nil
	}
	return r1, r2, err
}
