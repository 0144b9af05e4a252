// Package snapshot decodes process snapshot records and walks snapshot sources.
//
// Records use the PROCESSENTRY32W layout of the Windows toolhelp API. The layout is fixed by
// the ABI and only depends on the pointer size of the process that fills it:
//
//	field                 type       offset(64)  offset(32)
//	dwSize                uint32     0           0
//	cntUsage              uint32     4           4
//	th32ProcessID         uint32     8           8
//	th32DefaultHeapID     ULONG_PTR  16          12
//	th32ModuleID          uint32     24          16
//	cntThreads            uint32     28          20
//	th32ParentProcessID   uint32     32          24
//	pcPriClassBase        int32      36          28
//	dwFlags               uint32     40          32
//	szExeFile             [260]u16   44          36
//	size                             568         556
package snapshot

import (
	"encoding/binary"
	"unicode/utf16"
	"unsafe"

	"procmem/process"
)

// MaxPath is the capacity, in UTF-16 code units, of the executable name field.
const MaxPath = 260

// Layout holds the byte offsets of every record field.
type Layout struct {
	PtrSize       int
	Size          int
	ProcessID     int
	DefaultHeapID int
	ModuleID      int
	Threads       int
	ParentID      int
	PriClassBase  int
	Flags         int
	ExeFile       int
}

// NewLayout computes the record layout for the given pointer size (4 or 8).
func NewLayout(ptrSize int) Layout {
	l := Layout{PtrSize: ptrSize, ProcessID: 8}
	l.DefaultHeapID = align(12, ptrSize)
	l.ModuleID = l.DefaultHeapID + ptrSize
	l.Threads = l.ModuleID + 4
	l.ParentID = l.Threads + 4
	l.PriClassBase = l.ParentID + 4
	l.Flags = l.PriClassBase + 4
	l.ExeFile = l.Flags + 4
	l.Size = align(l.ExeFile+MaxPath*2, ptrSize)
	return l
}

// HostLayout is the layout for the pointer size of the running program.
var HostLayout = NewLayout(int(unsafe.Sizeof(uintptr(0))))

func align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// Entry is a typed view over one record buffer. Accessors return zero values for fields that
// fall outside the buffer.
type Entry struct {
	layout Layout
	buf    []byte
}

// NewEntry allocates a zeroed record for layout with dwSize set, ready to pass to the
// snapshot iteration calls.
func NewEntry(layout Layout) *Entry {
	e := &Entry{layout: layout, buf: make([]byte, layout.Size)}
	e.Reset()
	return e
}

// View wraps an existing buffer without copying it.
func View(layout Layout, buf []byte) *Entry {
	return &Entry{layout: layout, buf: buf}
}

// Reset zeroes the record and restores dwSize.
func (e *Entry) Reset() {
	clear(e.buf)
	e.putUint32(0, uint32(e.layout.Size))
}

// Bytes returns the underlying buffer.
func (e *Entry) Bytes() []byte {
	return e.buf
}

// Layout returns the layout of the record.
func (e *Entry) Layout() Layout {
	return e.layout
}

func (e *Entry) uint32At(off int) uint32 {
	if off < 0 || off+4 > len(e.buf) {
		return 0
	}
	return binary.LittleEndian.Uint32(e.buf[off:])
}

func (e *Entry) putUint32(off int, v uint32) {
	if off < 0 || off+4 > len(e.buf) {
		return
	}
	binary.LittleEndian.PutUint32(e.buf[off:], v)
}

func (e *Entry) Size() uint32 {
	return e.uint32At(0)
}

func (e *Entry) ProcessID() process.ProcessID {
	return process.ProcessID(e.uint32At(e.layout.ProcessID))
}

func (e *Entry) ParentProcessID() process.ProcessID {
	return process.ProcessID(e.uint32At(e.layout.ParentID))
}

func (e *Entry) Threads() uint32 {
	return e.uint32At(e.layout.Threads)
}

func (e *Entry) PriorityClass() int32 {
	return int32(e.uint32At(e.layout.PriClassBase))
}

// ExeFile decodes the NUL-terminated image name. It never reads past MaxPath code units or
// past the end of the buffer, so an unterminated field yields the bounded prefix.
func (e *Entry) ExeFile() string {
	start := e.layout.ExeFile
	if start < 0 || start >= len(e.buf) {
		return ""
	}
	end := start + MaxPath*2
	if end > len(e.buf) {
		end = len(e.buf)
	}

	units := make([]uint16, 0, 32)
	for off := start; off+2 <= end; off += 2 {
		u := binary.LittleEndian.Uint16(e.buf[off:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// Info decodes the record into a ProcessInfo.
func (e *Entry) Info() process.ProcessInfo {
	return process.ProcessInfo{
		PID:           e.ProcessID(),
		PPID:          e.ParentProcessID(),
		Name:          e.ExeFile(),
		Threads:       e.Threads(),
		PriorityClass: e.PriorityClass(),
	}
}

// SetInfo encodes info into the record, for sources that do not come from the toolhelp API.
// Names longer than MaxPath-1 code units are truncated so the field stays terminated.
func (e *Entry) SetInfo(info process.ProcessInfo) {
	e.Reset()
	e.putUint32(e.layout.ProcessID, uint32(info.PID))
	e.putUint32(e.layout.ParentID, uint32(info.PPID))
	e.putUint32(e.layout.Threads, info.Threads)
	e.putUint32(e.layout.PriClassBase, uint32(info.PriorityClass))

	units := utf16.Encode([]rune(info.Name))
	if len(units) > MaxPath-1 {
		units = units[:MaxPath-1]
	}
	off := e.layout.ExeFile
	for _, u := range units {
		if off+2 > len(e.buf) {
			return
		}
		binary.LittleEndian.PutUint16(e.buf[off:], u)
		off += 2
	}
}
