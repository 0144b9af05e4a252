// Package process defines the types shared by the process access backends.
package process

import "errors"

// Type definitions live in:
// - types.go: ProcessID, ProcessInfo
// - handle.go: Handle, NoHandle, AccessRights
// - memory_types.go: ProcessMemoryAddress, ProcessMemorySize
// - process_interface.go: System

var (
	// ErrAddressNotMapped is returned when no byte could be transferred at an address.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation is attempted on a closed accessor.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrInvalidHandle is returned when NoHandle, or a handle the backend did not issue, is used.
	ErrInvalidHandle = errors.New("invalid process handle")

	// ErrAccessDenied is returned when the handle lacks the rights for an operation or the
	// operating system refuses it.
	ErrAccessDenied = errors.New("access denied")

	// ErrProcessExited is returned when the process behind a handle is gone.
	ErrProcessExited = errors.New("process exited")

	// ErrPartialWrite is returned when fewer bytes were written than requested.
	ErrPartialWrite = errors.New("partial write")
)
