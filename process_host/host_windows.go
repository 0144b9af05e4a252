//go:build windows

package process_host

import (
	"procmem/process"
	"procmem/process_windows"
)

// New returns the kernel32 backend.
func New() (process.System, error) {
	sys, err := process_windows.New()
	if err != nil {
		return nil, err
	}
	return sys, nil
}
