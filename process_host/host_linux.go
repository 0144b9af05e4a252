//go:build linux

package process_host

import (
	"procmem/process"
	"procmem/process_linux"
)

// New returns the Linux backend.
func New() (process.System, error) {
	sys, err := process_linux.New()
	if err != nil {
		return nil, err
	}
	return sys, nil
}
