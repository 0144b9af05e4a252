// Package memory_map models the memory regions of a process.
package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint64 // The size of the memory region in bytes
	Perms   string // Permissions in /proc maps form, e.g. "r-xp"
	Path    string // Backing file or pseudo path, empty for anonymous memory
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	s := fmt.Sprintf("%016x-%016x %s %10d", mmItem.Address, mmItem.End(), mmItem.Perms, mmItem.Size)
	if mmItem.Path != "" {
		s += " " + mmItem.Path
	}
	return s
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + mmItem.Size
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// Sort orders regions by start address, which FindRegion requires.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// FindRegion returns the region of a sorted map that contains addr, or nil.
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// ParseMaps parses the /proc/<pid>/maps format. Lines that do not parse are skipped.
func ParseMaps(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// 00400000-0040b000 r-xp 00000000 08:01 1234  /usr/bin/cat
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    endAddr - startAddr,
			Perms:   fields[1],
		}
		if len(fields) >= 6 {
			item.Path = strings.Join(fields[5:], " ")
		}
		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	Sort(memoryMap)
	return memoryMap, nil
}

// Windows memory protection and type constants.
const (
	PageNoAccess         = 0x01
	PageReadOnly         = 0x02
	PageReadWrite        = 0x04
	PageWriteCopy        = 0x08
	PageExecute          = 0x10
	PageExecuteRead      = 0x20
	PageExecuteReadWrite = 0x40
	PageExecuteWriteCopy = 0x80
	PageGuard            = 0x100

	MemCommit  = 0x1000
	MemPrivate = 0x20000
	MemMapped  = 0x40000
	MemImage   = 0x1000000
)

// PermsFromProtect converts a Windows page protection and region type into /proc maps form.
// Guard pages are reported as inaccessible.
func PermsFromProtect(protect, memType uint32) string {
	perms := []byte("---p")
	if memType == MemMapped || memType == MemImage {
		perms[3] = 's'
	}
	if protect&PageGuard != 0 {
		return string(perms)
	}

	switch protect &^ 0x700 {
	case PageReadOnly:
		perms[0] = 'r'
	case PageReadWrite, PageWriteCopy:
		perms[0], perms[1] = 'r', 'w'
	case PageExecute:
		perms[2] = 'x'
	case PageExecuteRead:
		perms[0], perms[2] = 'r', 'x'
	case PageExecuteReadWrite, PageExecuteWriteCopy:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}
