// Package session keeps at most one process attached and serialises every operation on it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"procmem/hexdump"
	"procmem/memory"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/search"
)

var (
	// ErrDetached is returned by memory operations while no process is attached.
	ErrDetached = errors.New("no process attached")
	// ErrAttachDenied is returned when the process cannot be opened with the requested rights.
	ErrAttachDenied = errors.New("failed to open process, run as elevated user")
)

type State int

const (
	Detached State = iota
	Attached
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case Attached:
		return "attached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the caller side of the memory inspector. It is safe for concurrent use; calls
// are serialised so the attached handle is never used from two goroutines at once.
type Session struct {
	sys process.System
	log *logger.Logger

	mu     sync.Mutex
	pid    process.ProcessID
	rights process.AccessRights
	acc    *memory.Accessor
}

func New(sys process.System) *Session {
	return &Session{
		sys: sys,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "session")),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acc == nil {
		return Detached
	}
	return Attached
}

// PID returns the attached process id, or 0 when detached.
func (s *Session) PID() process.ProcessID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

func (s *Session) Rights() process.AccessRights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rights
}

// Processes lists the running processes.
func (s *Session) Processes() []process.ProcessInfo {
	return s.sys.ListProcesses()
}

// Find returns the processes whose name equals name, ignoring case. A name without an
// extension also matches "<name>.exe".
func (s *Session) Find(name string) []process.ProcessInfo {
	var found []process.ProcessInfo
	for _, info := range s.sys.ListProcesses() {
		if strings.EqualFold(info.Name, name) || strings.EqualFold(info.Name, name+".exe") {
			found = append(found, info)
		}
	}
	return found
}

// Attach opens pid with rights. Any previously attached process is detached first, even
// when the new open fails.
func (s *Session) Attach(pid process.ProcessID, rights process.AccessRights) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked()

	h := s.sys.OpenProcess(pid, rights)
	if !h.Valid() {
		return fmt.Errorf("%w: pid %d with %s", ErrAttachDenied, pid, rights)
	}
	acc, err := memory.New(s.sys, h)
	if err != nil {
		s.sys.CloseHandle(h)
		return err
	}

	s.pid, s.rights, s.acc = pid, rights, acc
	s.log.Infoln("Attached to", pid, "with", rights)
	return nil
}

// Detach releases the attached process. It returns false when nothing was attached or the
// handle could not be released.
func (s *Session) Detach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detachLocked()
}

func (s *Session) detachLocked() bool {
	if s.acc == nil {
		return false
	}
	ok := s.acc.Close()
	s.log.Infoln("Detached from", s.pid)
	s.pid, s.rights, s.acc = 0, 0, nil
	return ok
}

func (s *Session) accessor() (*memory.Accessor, error) {
	if s.acc == nil {
		return nil, ErrDetached
	}
	return s.acc, nil
}

func (s *Session) Read(addr process.ProcessMemoryAddress, size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.accessor()
	if err != nil {
		return nil, err
	}
	return acc.TryRead(addr, size)
}

func (s *Session) Write(addr process.ProcessMemoryAddress, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.accessor()
	if err != nil {
		return err
	}
	return acc.TryWrite(addr, data)
}

// ReadHex reads size bytes and formats them as space separated hex pairs.
func (s *Session) ReadHex(addr process.ProcessMemoryAddress, size int) (string, error) {
	data, err := s.Read(addr, size)
	if err != nil {
		return "", err
	}
	return hexdump.Encode(data), nil
}

func (s *Session) WriteHex(addr process.ProcessMemoryAddress, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.accessor()
	if err != nil {
		return err
	}
	return acc.TryWriteHex(addr, text)
}

// Dump reads size bytes and renders them with opts. The dump starts at addr.
func (s *Session) Dump(addr process.ProcessMemoryAddress, size int, opts hexdump.HexDumpOptions) (string, error) {
	data, err := s.Read(addr, size)
	if err != nil {
		return "", err
	}
	opts.StartAddress = uint64(addr)
	return hexdump.Dump(data, opts), nil
}

func (s *Session) MemoryMap() ([]memory_map.MemoryMapItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.accessor()
	if err != nil {
		return nil, err
	}
	return acc.MemoryMap()
}

// Search scans the readable regions of the attached process for pattern.
func (s *Session) Search(pattern search.Pattern, options ...search.Option) ([]process.ProcessMemoryAddress, error) {
	regions, err := s.MemoryMap()
	if err != nil {
		return nil, err
	}
	found, err := search.Scan(s, regions, pattern, options...)
	if err != nil {
		return nil, err
	}
	s.log.Debugln("Pattern", pattern, "matched", len(found), "times")
	return found, nil
}
