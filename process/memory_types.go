package process

import (
	"fmt"
	"strconv"
	"strings"
)

// ProcessMemoryAddress is a virtual address in the target process, not in the caller.
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

var addressSeparators = strings.NewReplacer("`", "", "_", "")

// ParseAddress parses a hex address typed by a user. A 0x prefix is optional and the
// separators used by debuggers (00007ff6`12340000, 0x7ff6_1234_0000) are ignored.
func ParseAddress(s string) (ProcessMemoryAddress, error) {
	text := strings.TrimSpace(s)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	text = addressSeparators.Replace(text)

	v, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return ProcessMemoryAddress(v), nil
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}
