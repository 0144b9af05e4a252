package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/config"
	"procmem/hexdump"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/session"
)

const stubBase = 0x1000

type stubSystem struct {
	mem    []byte
	rights process.AccessRights
}

func (s *stubSystem) ListProcesses() []process.ProcessInfo {
	return []process.ProcessInfo{{PID: 7, PPID: 1, Name: "target.exe", Threads: 2}}
}

func (s *stubSystem) OpenProcess(pid process.ProcessID, rights process.AccessRights) process.Handle {
	if pid != 7 {
		return process.NoHandle
	}
	s.rights = rights
	return 4
}

func (s *stubSystem) CloseHandle(h process.Handle) bool { return h == 4 }

func (s *stubSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if addr < stubBase || int(addr-stubBase) >= len(s.mem) {
		return 0, process.ErrAddressNotMapped
	}
	return copy(buf, s.mem[addr-stubBase:]), nil
}

func (s *stubSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if addr < stubBase || int(addr-stubBase) >= len(s.mem) {
		return 0, process.ErrAddressNotMapped
	}
	return copy(s.mem[addr-stubBase:], data), nil
}

func (s *stubSystem) MemoryMap(h process.Handle) ([]memory_map.MemoryMapItem, error) {
	return []memory_map.MemoryMapItem{{Address: stubBase, Size: uint64(len(s.mem)), Perms: "rw-p"}}, nil
}

func runShell(t *testing.T, script string) (string, *stubSystem) {
	t.Helper()
	stub := &stubSystem{mem: []byte{0x4D, 0x5A, 0x90, 0x00, 0, 0, 0, 0}}
	var out bytes.Buffer
	sh := &shell{
		session:  session.New(stub),
		out:      &out,
		rights:   process.ReadOnly,
		maxRead:  64,
		dumpOpts: hexdump.DefaultOptions(),
	}
	require.NoError(t, sh.run(strings.NewReader(script)))
	return out.String(), stub
}

func TestShellSession(t *testing.T) {
	out, stub := runShell(t, strings.Join([]string{
		"hex 0x1000 4",
		"attach 7 all",
		"hex 0x1000 4",
		"write 0x1004 AA BB",
		"hex 0x1004 2",
		"status",
		"detach",
		"quit",
		"ps",
	}, "\n"))

	assert.Contains(t, out, "error: no process attached")
	assert.Contains(t, out, "procmem[7]> ")
	assert.Contains(t, out, "4D 5A 90 00\n")
	assert.Contains(t, out, "AA BB\n")
	assert.Contains(t, out, "attached pid=7 rights=all")
	assert.NotContains(t, out, "target.exe")
	assert.Equal(t, process.AllAccess, stub.rights)
	assert.Equal(t, []byte{0xAA, 0xBB}, stub.mem[4:6])
}

func TestShellErrors(t *testing.T) {
	out, stub := runShell(t, strings.Join([]string{
		"attach 9",
		"attach 7",
		"write 0x1000 ABC",
		"read 0x1000 65",
		"bogus",
		"ps target",
	}, "\n"))

	assert.Contains(t, out, "run as elevated user")
	assert.Contains(t, out, "odd")
	assert.Contains(t, out, "exceeds max_read")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "target.exe")
	assert.Equal(t, process.ReadOnly, stub.rights)
	assert.Equal(t, byte(0x4D), stub.mem[0])
}

func TestShellDump(t *testing.T) {
	out, _ := runShell(t, "attach 7\nread 0x1000 4\nmaps\nsearch 5A ?? 00\n")
	assert.Contains(t, out, "0000000000001000  4D 5A 90 00")
	assert.Contains(t, out, "|MZ..|")
	assert.Contains(t, out, "rw-p")
	assert.Contains(t, out, "0x1001\n")
}

func TestShellHandle(t *testing.T) {
	var out bytes.Buffer
	sh := &shell{
		session:  session.New(&stubSystem{mem: make([]byte, 8)}),
		out:      &out,
		rights:   process.ReadOnly,
		maxRead:  64,
		dumpOpts: hexdump.DefaultOptions(),
	}

	assert.False(t, sh.handle(""))
	assert.False(t, sh.handle("   "))
	assert.Empty(t, out.String())

	assert.False(t, sh.handle("maps"))
	assert.Equal(t, "error: no process attached\n", out.String())

	assert.True(t, sh.handle("quit"))
	assert.True(t, sh.handle("EXIT"))
}

func TestHistoryPath(t *testing.T) {
	assert.Equal(t, filepath.Join(config.Dir(), "history"), historyPath())
	assert.Equal(t, ".procmem", filepath.Base(filepath.Dir(historyPath())))
}
