package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/hexdump"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/search"
	"procmem/session"
)

const base = process.ProcessMemoryAddress(0x400000)

type stubSystem struct {
	mu       sync.Mutex
	mem      map[process.ProcessID][]byte
	open     map[process.Handle]process.ProcessID
	next     process.Handle
	inFlight int
	overlap  bool
	calls    int
}

func newStub() *stubSystem {
	return &stubSystem{
		mem: map[process.ProcessID][]byte{
			10: {0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00},
			20: make([]byte, 8),
		},
		open: map[process.Handle]process.ProcessID{},
	}
}

func (s *stubSystem) ListProcesses() []process.ProcessInfo {
	return []process.ProcessInfo{
		{PID: 10, PPID: 1, Name: "game.exe", Threads: 3},
		{PID: 20, PPID: 1, Name: "Editor.EXE", Threads: 1},
		{PID: 30, PPID: 1, Name: "init", Threads: 1},
	}
}

func (s *stubSystem) OpenProcess(pid process.ProcessID, rights process.AccessRights) process.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.mem[pid]; !ok {
		return process.NoHandle
	}
	s.next += 4
	s.open[s.next] = pid
	return s.next
}

func (s *stubSystem) CloseHandle(h process.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.open[h]; !ok {
		return false
	}
	delete(s.open, h)
	return true
}

// enter records overlapping calls; the session must never issue two at once.
func (s *stubSystem) enter(h process.Handle, addr process.ProcessMemoryAddress) ([]byte, func(), error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	if s.inFlight > 1 {
		s.overlap = true
	}
	pid, ok := s.open[h]
	s.mu.Unlock()

	leave := func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}
	if !ok {
		return nil, leave, process.ErrInvalidHandle
	}
	mem := s.mem[pid]
	if addr < base || addr >= base+process.ProcessMemoryAddress(len(mem)) {
		return nil, leave, process.ErrAddressNotMapped
	}
	return mem[addr-base:], leave, nil
}

func (s *stubSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	w, leave, err := s.enter(h, addr)
	defer leave()
	if err != nil {
		return 0, err
	}
	return copy(buf, w), nil
}

func (s *stubSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	w, leave, err := s.enter(h, addr)
	defer leave()
	if err != nil {
		return 0, err
	}
	return copy(w, data), nil
}

func (s *stubSystem) MemoryMap(h process.Handle) ([]memory_map.MemoryMapItem, error) {
	_, leave, err := s.enter(h, base)
	defer leave()
	if err != nil {
		return nil, err
	}
	return []memory_map.MemoryMapItem{{Address: uint64(base), Size: 8, Perms: "rw-p"}}, nil
}

func (s *stubSystem) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestDetachedRejectsOperations(t *testing.T) {
	stub := newStub()
	s := session.New(stub)
	assert.Equal(t, session.Detached, s.State())

	_, err := s.Read(base, 4)
	assert.ErrorIs(t, err, session.ErrDetached)
	assert.ErrorIs(t, s.Write(base, []byte{1}), session.ErrDetached)
	_, err = s.ReadHex(base, 4)
	assert.ErrorIs(t, err, session.ErrDetached)
	assert.ErrorIs(t, s.WriteHex(base, "00"), session.ErrDetached)
	_, err = s.MemoryMap()
	assert.ErrorIs(t, err, session.ErrDetached)
	_, err = s.Dump(base, 4, hexdump.DefaultOptions())
	assert.ErrorIs(t, err, session.ErrDetached)
	assert.False(t, s.Detach())

	assert.Zero(t, stub.callCount())
}

func TestAttachReadWrite(t *testing.T) {
	s := session.New(newStub())
	require.NoError(t, s.Attach(10, process.ReadWrite))
	assert.Equal(t, session.Attached, s.State())
	assert.Equal(t, process.ProcessID(10), s.PID())
	assert.Equal(t, process.ReadWrite, s.Rights())

	text, err := s.ReadHex(base, 4)
	require.NoError(t, err)
	assert.Equal(t, "4D 5A 90 00", text)

	require.NoError(t, s.WriteHex(base+4, "AA BB"))
	data, err := s.Read(base+4, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0x00, 0x00}, data)

	assert.ErrorIs(t, s.WriteHex(base, "ABC"), hexdump.ErrOddLength)

	dump, err := s.Dump(base, 4, hexdump.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, dump, "0000000000400000")

	mm, err := s.MemoryMap()
	require.NoError(t, err)
	require.Len(t, mm, 1)
	assert.True(t, mm[0].IsWritable())

	assert.True(t, s.Detach())
	assert.Equal(t, session.Detached, s.State())
	assert.Zero(t, s.PID())
	assert.False(t, s.Detach())
}

func TestAttachReplacesPrevious(t *testing.T) {
	stub := newStub()
	s := session.New(stub)
	require.NoError(t, s.Attach(10, process.ReadOnly))
	require.NoError(t, s.Attach(20, process.ReadOnly))
	assert.Len(t, stub.open, 1)

	data, err := s.Read(base, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)
}

func TestAttachDenied(t *testing.T) {
	stub := newStub()
	s := session.New(stub)
	require.NoError(t, s.Attach(10, process.ReadOnly))

	err := s.Attach(99, process.AllAccess)
	assert.ErrorIs(t, err, session.ErrAttachDenied)
	assert.Contains(t, err.Error(), "run as elevated user")
	assert.Equal(t, session.Detached, s.State())
	assert.Empty(t, stub.open)
}

func TestFind(t *testing.T) {
	s := session.New(newStub())

	found := s.Find("game")
	require.Len(t, found, 1)
	assert.Equal(t, process.ProcessID(10), found[0].PID)

	assert.Len(t, s.Find("editor.exe"), 1)
	assert.Len(t, s.Find("INIT"), 1)
	assert.Empty(t, s.Find("missing"))
	assert.Len(t, s.Processes(), 3)
}

func TestOperationsSerialised(t *testing.T) {
	stub := newStub()
	s := session.New(stub)
	require.NoError(t, s.Attach(10, process.ReadWrite))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					_, _ = s.Read(base, 8)
				} else {
					_ = s.Write(base+7, []byte{byte(j)})
				}
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, stub.overlap)
}

func TestSearch(t *testing.T) {
	s := session.New(newStub())
	p, err := search.ParsePattern("5A ?? 00")
	require.NoError(t, err)

	_, err = s.Search(p)
	assert.ErrorIs(t, err, session.ErrDetached)

	require.NoError(t, s.Attach(10, process.ReadOnly))
	found, err := s.Search(p)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{base + 1}, found)
}
