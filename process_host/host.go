// Package process_host selects the process.System of the running operating system.
package process_host

import "errors"

// ErrUnsupported is returned on operating systems without a backend.
var ErrUnsupported = errors.New("process access is not supported on this operating system")
