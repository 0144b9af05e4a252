//go:build linux

package process_linux

import (
	"fmt"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"procmem/process"
	"procmem/process/snapshot"
)

// openSnapshot captures every process once and serves the captured entries through the
// same record layout the toolhelp API fills. Processes that exit during the capture keep
// the fields read so far. The priority class is the nice value.
func openSnapshot() (snapshot.Source, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	infos := make([]process.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info := process.ProcessInfo{PID: process.ProcessID(p.Pid)}
		if ppid, err := p.Ppid(); err == nil {
			info.PPID = process.ProcessID(ppid)
		}
		if name, err := p.Name(); err == nil {
			info.Name = name
		}
		if threads, err := p.NumThreads(); err == nil && threads > 0 {
			info.Threads = uint32(threads)
		}
		if nice, err := p.Nice(); err == nil {
			info.PriorityClass = nice
		}
		infos = append(infos, info)
	}

	return snapshot.NewRecords(infos), nil
}
