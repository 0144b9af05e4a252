package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"procmem/process"
)

var psName string

func init() {
	psCmd.Flags().StringVar(&psName, "name", "", "only processes with this image name")
	rootCmd.AddCommand(psCmd)
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "list running processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		var procs []process.ProcessInfo
		if psName != "" {
			procs = s.Find(psName)
		} else {
			procs = s.Processes()
		}
		sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })

		writeProcesses(cmd.OutOrStdout(), procs)
		return nil
	},
}

func writeProcesses(w io.Writer, procs []process.ProcessInfo) {
	fmt.Fprintf(w, "%8s %8s %7s %5s  %s\n", "PID", "PPID", "THREADS", "PRI", "NAME")
	for _, p := range procs {
		fmt.Fprintf(w, "%8d %8d %7d %5d  %s\n", p.PID, p.PPID, p.Threads, p.PriorityClass, p.Name)
	}
}
