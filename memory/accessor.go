// Package memory reads and writes the memory of one opened process.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"procmem/hexdump"
	"procmem/process"
	"procmem/process/memory_map"
)

// MaxReadSize bounds a single read so a typo in a size field cannot allocate gigabytes.
const MaxReadSize = 64 << 20

// ErrReadTooLarge is returned for reads above MaxReadSize.
var ErrReadTooLarge = errors.New("read size too large")

// Accessor binds one process handle to read and write operations.
//
// An Accessor is single use: Close releases the handle once and every later operation fails
// without reaching the operating system.
type Accessor struct {
	sys process.System
	log *logger.Logger

	mu     sync.RWMutex
	handle process.Handle
}

// New wraps h. It fails with process.ErrInvalidHandle when h is NoHandle.
func New(sys process.System, h process.Handle) (*Accessor, error) {
	if !h.Valid() {
		return nil, process.ErrInvalidHandle
	}
	return &Accessor{
		sys:    sys,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("memory-%x", uintptr(h)))),
		handle: h,
	}, nil
}

// Handle returns the wrapped handle, or NoHandle after Close.
func (a *Accessor) Handle() process.Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.handle
}

// TryRead reads size bytes at addr. It returns the bytes actually transferred, which may be
// fewer than requested when the range runs into unmapped memory. A failure with no bytes
// transferred is reported as an error.
func (a *Accessor) TryRead(addr process.ProcessMemoryAddress, size int) ([]byte, error) {
	if size <= 0 {
		return []byte{}, nil
	}
	if size > MaxReadSize {
		return []byte{}, fmt.Errorf("%w: %d bytes", ErrReadTooLarge, size)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.handle.Valid() {
		return []byte{}, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	n, err := a.sys.ReadMemory(a.handle, addr, buf)
	if n > len(buf) {
		n = len(buf)
	}
	if n <= 0 {
		if err == nil {
			err = process.ErrAddressNotMapped
		}
		return []byte{}, fmt.Errorf("read %d bytes at %s: %w", size, addr.ToString(), err)
	}
	if err != nil {
		a.log.Debugln("Partial read at", addr.ToString(), n, "of", size, "bytes:", err)
	}
	return buf[:n], nil
}

// Read reads size bytes at addr and returns the bytes actually transferred. Failure, and
// size <= 0, give an empty slice; callers treat an empty result as "no data".
func (a *Accessor) Read(addr process.ProcessMemoryAddress, size int) []byte {
	data, err := a.TryRead(addr, size)
	if err != nil {
		a.log.Debugln("Read failed:", err)
	}
	return data
}

// TryWrite writes data at addr with a single system call. An empty payload succeeds without
// touching the process.
func (a *Accessor) TryWrite(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.handle.Valid() {
		return process.ErrProcessNotOpen
	}

	n, err := a.sys.WriteMemory(a.handle, addr, data)
	if err != nil {
		return fmt.Errorf("write %d bytes at %s: %w", len(data), addr.ToString(), err)
	}
	if n != len(data) {
		return fmt.Errorf("write at %s: %w: %d of %d bytes", addr.ToString(), process.ErrPartialWrite, n, len(data))
	}
	return nil
}

// Write writes data at addr and reports whether every byte was written.
func (a *Accessor) Write(addr process.ProcessMemoryAddress, data []byte) bool {
	if err := a.TryWrite(addr, data); err != nil {
		a.log.Debugln("Write failed:", err)
		return false
	}
	return true
}

// ReadAsHex reads size bytes at addr and formats them as "4D 5A 90 00".
// The result is empty when the read fails.
func (a *Accessor) ReadAsHex(addr process.ProcessMemoryAddress, size int) string {
	return hexdump.Encode(a.Read(addr, size))
}

// TryWriteHex decodes hex text and writes it at addr. Malformed text is rejected before the
// process is touched.
func (a *Accessor) TryWriteHex(addr process.ProcessMemoryAddress, text string) error {
	data, err := hexdump.Decode(text)
	if err != nil {
		return err
	}
	return a.TryWrite(addr, data)
}

// WriteHex decodes hex text such as "4D 5A 90 00" or "4D5A9000" and writes it at addr.
// It returns false without writing when the text is not whole hex pairs.
func (a *Accessor) WriteHex(addr process.ProcessMemoryAddress, text string) bool {
	if err := a.TryWriteHex(addr, text); err != nil {
		a.log.Debugln("WriteHex failed:", err)
		return false
	}
	return true
}

// MemoryMap lists the memory regions of the process.
func (a *Accessor) MemoryMap() ([]memory_map.MemoryMapItem, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.handle.Valid() {
		return nil, process.ErrProcessNotOpen
	}
	return a.sys.MemoryMap(a.handle)
}

// Close releases the handle. It returns the result of the release on the first call and false
// on any later call.
func (a *Accessor) Close() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.handle.Valid() {
		return false
	}
	h := a.handle
	a.handle = process.NoHandle

	ok := a.sys.CloseHandle(h)
	if !ok {
		a.log.Warn("CloseHandle failed for ", h)
	}
	return ok
}
