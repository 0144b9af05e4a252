//go:build windows

package process_windows

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"procmem/process"
	"procmem/process/memory_map"
)

// MemoryMap walks the address space with VirtualQueryEx and returns the committed regions.
func (s *WindowsSystem) MemoryMap(h process.Handle) ([]memory_map.MemoryMapItem, error) {
	if _, err := s.lookup(h); err != nil {
		return nil, err
	}

	var regions []memory_map.MemoryMapItem
	var mbi windows.MemoryBasicInformation
	var addr uintptr

	for {
		r1, _, err := s.kernel32.Call("VirtualQueryEx",
			uintptr(h),
			addr,
			uintptr(unsafe.Pointer(&mbi)),
			unsafe.Sizeof(mbi),
		)
		if r1 == 0 {
			// ERROR_INVALID_PARAMETER marks the end of the user address space
			if len(regions) == 0 {
				return nil, mapError(err)
			}
			break
		}

		if mbi.State == memory_map.MemCommit {
			regions = append(regions, memory_map.MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint64(mbi.RegionSize),
				Perms:   memory_map.PermsFromProtect(mbi.Protect, mbi.Type),
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	memory_map.Sort(regions)
	return regions, nil
}
