package process

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle is an opaque reference to an open process issued by the operating system backend.
// A Handle is either valid or NoHandle; it carries the access rights granted when it was opened.
type Handle uintptr

// NoHandle is the only invalid Handle value. It is returned when an open fails and must never
// be passed to a memory operation.
const NoHandle Handle = 0

// Valid reports whether h refers to an opened process.
func (h Handle) Valid() bool {
	return h != NoHandle
}

func (h Handle) String() string {
	if !h.Valid() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(0x%x)", uintptr(h))
}

// AccessRights is a bitmask of capabilities requested when opening a process.
// The values are those of the Windows process access rights.
type AccessRights uint32

const (
	Terminate               AccessRights = 0x0001
	VMOperation             AccessRights = 0x0008
	VMRead                  AccessRights = 0x0010
	VMWrite                 AccessRights = 0x0020
	QueryInformation        AccessRights = 0x0400
	QueryLimitedInformation AccessRights = 0x1000
	Synchronize             AccessRights = 0x00100000
	AllAccess               AccessRights = 0x001FFFFF

	// ReadOnly is enough to read memory and list regions.
	ReadOnly = VMRead | QueryInformation
	// ReadWrite is enough to read, write and list regions.
	ReadWrite = VMRead | VMWrite | VMOperation | QueryInformation
)

var accessNames = []struct {
	name  string
	right AccessRights
}{
	{"terminate", Terminate},
	{"operation", VMOperation},
	{"read", VMRead},
	{"write", VMWrite},
	{"query", QueryInformation},
	{"query-limited", QueryLimitedInformation},
	{"synchronize", Synchronize},
}

// Has reports whether every right in want is present in r.
func (r AccessRights) Has(want AccessRights) bool {
	return r&want == want
}

func (r AccessRights) String() string {
	if r == AllAccess {
		return "all"
	}
	var parts []string
	rest := r
	for _, n := range accessNames {
		if r.Has(n.right) {
			parts = append(parts, n.name)
			rest &^= n.right
		}
	}
	if rest != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseAccessRights parses "all", a hex/decimal mask such as "0x38", or a list of names
// separated by commas or pipes: read, write, operation, query, query-limited, synchronize,
// terminate. "write" implies "operation" because memory writes need both.
func ParseAccessRights(s string) (AccessRights, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return 0, fmt.Errorf("empty access rights")
	}
	if text == "all" {
		return AllAccess, nil
	}
	if v, err := strconv.ParseUint(text, 0, 32); err == nil {
		return AccessRights(v), nil
	}

	var r AccessRights
	for _, field := range strings.FieldsFunc(text, func(c rune) bool { return c == ',' || c == '|' || c == ' ' }) {
		found := false
		for _, n := range accessNames {
			if n.name == field {
				r |= n.right
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown access right %q", field)
		}
		if field == "write" {
			r |= VMOperation
		}
	}
	return r, nil
}
