//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"

	"procmem/native"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/process/snapshot"
)

// handleStep keeps issued handles aligned like kernel handle values.
const handleStep = 4

type openProcess struct {
	pid    process.ProcessID
	rights process.AccessRights
	pidfd  int // -1 when pidfd_open is not available
	log    *logger.Logger
}

// LinuxSystem implements process.System with pidfds and process_vm_readv/writev.
//
// Handles are opaque values issued from a table; each one records the pid, the granted
// rights and a pidfd that pins the identity of the process.
type LinuxSystem struct {
	kernel *native.Binder
	log    *logger.Logger

	mu      sync.RWMutex
	next    process.Handle
	handles map[process.Handle]openProcess
}

// New binds the system calls and returns a LinuxSystem. A missing system call is a fatal
// configuration error.
func New() (*LinuxSystem, error) {
	kernel := native.Kernel()
	if err := kernel.ResolveAll(); err != nil {
		return nil, fmt.Errorf("bind %s system calls: %w", kernel.Library(), err)
	}
	return &LinuxSystem{
		kernel:  kernel,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux")),
		handles: make(map[process.Handle]openProcess),
	}, nil
}

// ListProcesses walks a snapshot of the running processes.
func (s *LinuxSystem) ListProcesses() []process.ProcessInfo {
	infos, err := snapshot.Collect(openSnapshot, snapshot.HostLayout)
	if err != nil {
		s.log.Debugln("Process snapshot failed:", err)
	}
	return infos
}

// OpenProcess opens pid and records rights. It returns NoHandle when the process does not exist
// or the caller may not access it with rights.
func (s *LinuxSystem) OpenProcess(pid process.ProcessID, rights process.AccessRights) process.Handle {
	if pid == 0 {
		return process.NoHandle
	}

	pidfd := -1
	r1, _, err := s.kernel.Call("pidfd_open", uintptr(pid), 0)
	switch {
	case err == nil:
		pidfd = int(r1)
	case errors.Is(err, unix.ENOSYS):
		// kernels before 5.3: fall back to the bare pid
		if kerr := unix.Kill(int(pid), 0); errors.Is(kerr, unix.ESRCH) {
			s.log.Debugln("OpenProcess", pid, "failed:", kerr)
			return process.NoHandle
		}
	default:
		s.log.Debugln("OpenProcess", pid, "failed:", err)
		return process.NoHandle
	}

	if err := checkAccess(pid, rights); err != nil {
		s.log.Debugln("OpenProcess", pid, "with", rights, "denied:", err)
		if pidfd >= 0 {
			s.kernel.Call("close", uintptr(pidfd))
		}
		return process.NoHandle
	}

	op := openProcess{
		pid:    pid,
		rights: rights,
		pidfd:  pidfd,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	s.mu.Lock()
	s.next += handleStep
	h := s.next
	s.handles[h] = op
	s.mu.Unlock()

	op.log.Infoln("Process opened with", rights, "as", h)
	return h
}

// checkAccess opens the proc files the requested rights need, so a caller without ptrace
// access to pid is refused at open time like OpenProcess refuses it.
func checkAccess(pid process.ProcessID, rights process.AccessRights) error {
	if rights.Has(process.VMWrite) {
		if err := tryOpen(fmt.Sprintf("/proc/%d/mem", pid), unix.O_RDWR); err != nil {
			return err
		}
	} else if rights.Has(process.VMRead) {
		if err := tryOpen(fmt.Sprintf("/proc/%d/mem", pid), unix.O_RDONLY); err != nil {
			return err
		}
	}
	if rights.Has(process.QueryInformation) || rights.Has(process.QueryLimitedInformation) {
		if err := tryOpen(fmt.Sprintf("/proc/%d/maps", pid), unix.O_RDONLY); err != nil {
			return err
		}
	}
	return nil
}

func tryOpen(path string, mode int) error {
	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0)
	if err != nil {
		return mapErrno(fmt.Errorf("open %s: %w", path, err))
	}
	return unix.Close(fd)
}

// CloseHandle releases h. Unknown handles, including NoHandle, return false.
func (s *LinuxSystem) CloseHandle(h process.Handle) bool {
	s.mu.Lock()
	op, ok := s.handles[h]
	delete(s.handles, h)
	s.mu.Unlock()

	if !ok {
		return false
	}

	if op.pidfd >= 0 {
		if _, _, err := s.kernel.Call("close", uintptr(op.pidfd)); err != nil {
			op.log.Warn("close pidfd failed: ", err)
			return false
		}
	}
	op.log.Infoln("Process closed")
	return true
}

func (s *LinuxSystem) lookup(h process.Handle, need process.AccessRights) (openProcess, error) {
	s.mu.RLock()
	op, ok := s.handles[h]
	s.mu.RUnlock()

	if !ok {
		return openProcess{}, process.ErrInvalidHandle
	}
	if !op.rights.Has(need) {
		return openProcess{}, fmt.Errorf("%w: handle has %s, need %s", process.ErrAccessDenied, op.rights, need)
	}
	if err := s.alive(op); err != nil {
		return openProcess{}, err
	}
	return op, nil
}

// alive reports ErrProcessExited once the process behind op is gone, so a recycled pid is
// never read through an old handle.
func (s *LinuxSystem) alive(op openProcess) error {
	var err error
	if op.pidfd >= 0 {
		_, _, err = s.kernel.Call("pidfd_send_signal", uintptr(op.pidfd), 0, 0, 0)
	} else {
		err = unix.Kill(int(op.pid), 0)
	}
	if errors.Is(err, unix.ESRCH) {
		return process.ErrProcessExited
	}
	return nil
}

// MemoryMap parses /proc/<pid>/maps of the process behind h.
func (s *LinuxSystem) MemoryMap(h process.Handle) ([]memory_map.MemoryMapItem, error) {
	op, err := s.lookup(h, process.QueryInformation)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", op.pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	defer file.Close()

	return memory_map.ParseMaps(file)
}

// mapErrno converts the errors of process_vm_readv/writev into the process sentinels.
func mapErrno(err error) error {
	switch {
	case errors.Is(err, unix.EFAULT):
		return fmt.Errorf("%w: %v", process.ErrAddressNotMapped, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w: %v", process.ErrAccessDenied, err)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %v", process.ErrProcessExited, err)
	default:
		return err
	}
}

// remoteAddress rejects addresses that do not fit the native pointer size.
func remoteAddress(addr process.ProcessMemoryAddress) (uintptr, error) {
	ptr := uintptr(addr)
	if uint64(ptr) != uint64(addr) {
		return 0, fmt.Errorf("%w: %s exceeds the address space", process.ErrAddressNotMapped, addr.ToString())
	}
	return ptr, nil
}
