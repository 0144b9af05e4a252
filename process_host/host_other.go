//go:build !linux && !windows

package process_host

import (
	"fmt"
	"runtime"

	"procmem/process"
)

func New() (process.System, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
}
