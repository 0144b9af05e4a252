package process

import "fmt"

// ProcessID represents a unique identifier for a running process. Identifiers may be reused
// once a process exits.
type ProcessID uint32

// ProcessInfo is one entry of a process snapshot. It is a copy taken at snapshot time and has
// no link to the live process, which may have exited by the time the entry is read.
type ProcessInfo struct {
	PID           ProcessID // Process ID
	PPID          ProcessID // Parent process ID, may refer to an exited process
	Name          string    // Image file name without directory, empty when inaccessible
	Threads       uint32    // Number of threads at snapshot time
	PriorityClass int32     // Base scheduling priority
}

func (pi ProcessInfo) String() string {
	return fmt.Sprintf("%d (%s) ppid=%d threads=%d priority=%d", pi.PID, pi.Name, pi.PPID, pi.Threads, pi.PriorityClass)
}
