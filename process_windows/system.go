//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"

	"procmem/native"
	"procmem/process"
	"procmem/process/snapshot"
)

// WindowsSystem implements process.System on kernel32.
//
// Handles are the kernel handles returned by OpenProcess. Only handles issued by this
// WindowsSystem are closed; anything else is rejected.
type WindowsSystem struct {
	kernel32 *native.Binder
	log      *logger.Logger

	mu   sync.Mutex
	open map[process.Handle]*logger.Logger
}

// New binds kernel32. A missing entry point is a fatal configuration error.
func New() (*WindowsSystem, error) {
	kernel32 := native.Kernel32()
	if err := kernel32.ResolveAll(); err != nil {
		return nil, fmt.Errorf("bind %s: %w", kernel32.Library(), err)
	}
	return &WindowsSystem{
		kernel32: kernel32,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-windows")),
		open:     make(map[process.Handle]*logger.Logger),
	}, nil
}

// ListProcesses walks a toolhelp snapshot of the running processes.
func (s *WindowsSystem) ListProcesses() []process.ProcessInfo {
	infos, err := snapshot.Collect(s.openSnapshot, snapshot.HostLayout)
	if err != nil {
		s.log.Debugln("Process snapshot failed:", err)
	}
	return infos
}

// OpenProcess returns NoHandle when the process does not exist or the rights are refused.
func (s *WindowsSystem) OpenProcess(pid process.ProcessID, rights process.AccessRights) process.Handle {
	r1, _, err := s.kernel32.Call("OpenProcess", uintptr(rights), 0, uintptr(pid))
	if r1 == 0 {
		s.log.Debugln("OpenProcess", pid, "with", rights, "failed:", err)
		return process.NoHandle
	}

	h := process.Handle(r1)
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	s.mu.Lock()
	s.open[h] = log
	s.mu.Unlock()

	log.Infoln("Process opened with", rights, "as", h)
	return h
}

// CloseHandle releases h. Handles this system did not issue return false.
func (s *WindowsSystem) CloseHandle(h process.Handle) bool {
	s.mu.Lock()
	log, ok := s.open[h]
	delete(s.open, h)
	s.mu.Unlock()

	if !ok {
		return false
	}

	r1, _, err := s.kernel32.Call("CloseHandle", uintptr(h))
	if r1 == 0 {
		log.Warn("CloseHandle failed: ", err)
		return false
	}
	log.Infoln("Process closed")
	return true
}

func (s *WindowsSystem) lookup(h process.Handle) (*logger.Logger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.open[h]
	if !ok {
		return nil, process.ErrInvalidHandle
	}
	return log, nil
}

// mapError converts Win32 errors into the process sentinels.
func mapError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %v", process.ErrAccessDenied, err)
	case errors.Is(err, windows.ERROR_PARTIAL_COPY), errors.Is(err, windows.ERROR_NOACCESS), errors.Is(err, windows.ERROR_INVALID_ADDRESS):
		return fmt.Errorf("%w: %v", process.ErrAddressNotMapped, err)
	case errors.Is(err, windows.ERROR_INVALID_HANDLE):
		return fmt.Errorf("%w: %v", process.ErrInvalidHandle, err)
	case err == nil:
		return errors.New("call failed without an error code")
	default:
		return err
	}
}
