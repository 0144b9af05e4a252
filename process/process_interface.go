package process

import (
	"procmem/process/memory_map"
)

// System is the process and memory access surface of one operating system.
//
// Every method is a single blocking call with no cancellation. A handle must not be used from
// two goroutines at once without external synchronisation.
type System interface {
	// ListProcesses walks a point-in-time snapshot of the running processes.
	// It returns an empty slice when no snapshot can be taken.
	ListProcesses() []ProcessInfo

	// OpenProcess opens pid with the requested rights. It returns NoHandle on failure.
	OpenProcess(pid ProcessID, rights AccessRights) Handle

	// CloseHandle releases h and reports whether the release succeeded.
	// Closing NoHandle or an already closed handle returns false.
	CloseHandle(h Handle) bool

	// ReadMemory reads up to len(buf) bytes at addr into buf and returns the number of bytes
	// transferred. A short count with a nil error is a partial read.
	ReadMemory(h Handle, addr ProcessMemoryAddress, buf []byte) (int, error)

	// WriteMemory writes data at addr in a single call and returns the number of bytes written.
	WriteMemory(h Handle, addr ProcessMemoryAddress, data []byte) (int, error)

	// MemoryMap lists the committed memory regions of the process behind h.
	MemoryMap(h Handle) ([]memory_map.MemoryMapItem, error)
}
