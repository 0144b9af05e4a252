package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-delve/liner"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"procmem/config"
	"procmem/hexdump"
	"procmem/process"
	"procmem/search"
	"procmem/session"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "interactive session: attach, read, write, detach",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		sh := &shell{
			session:  s,
			out:      cmd.OutOrStdout(),
			rights:   conf.Access,
			maxRead:  conf.MaxRead,
			dumpOpts: dumpOptions(),
		}
		defer s.Detach()

		if liner.TerminalSupported() && isatty.IsTerminal(os.Stdin.Fd()) {
			return sh.runTerminal(historyPath())
		}
		return sh.run(os.Stdin)
	},
}

var errQuit = errors.New("quit")

const historyFile = "history"

func historyPath() string {
	return filepath.Join(config.Dir(), historyFile)
}

const shellHelp = `commands:
  ps [name]                 list processes
  attach <pid> [rights]     open a process, rights like read,query or all
  detach                    close the attached process
  status                    show the attached process
  read <addr> <size>        hex dump
  hex <addr> <size>         hex pairs
  write <addr> <hex>...     write hex bytes
  maps                      memory regions
  search <pattern>...       find bytes, ?? matches any byte
  quit
`

type shell struct {
	session  *session.Session
	out      io.Writer
	rights   process.AccessRights
	maxRead  int
	dumpOpts hexdump.HexDumpOptions
}

// run reads commands from a non-terminal input such as a pipe or a script.
func (sh *shell) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(sh.out, sh.prompt())
	for scanner.Scan() {
		if sh.handle(scanner.Text()) {
			return nil
		}
		fmt.Fprint(sh.out, sh.prompt())
	}
	return scanner.Err()
}

// runTerminal reads commands with line editing and keeps the history in historyPath.
// Ctrl-C clears the line, Ctrl-D quits.
func (sh *shell) runTerminal(historyPath string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			log.Debug().Err(err).Msg("create history dir failed")
			return
		}
		f, err := os.Create(historyPath)
		if err != nil {
			log.Debug().Err(err).Msg("save history failed")
			return
		}
		defer f.Close()
		if _, err := line.WriteHistory(f); err != nil {
			log.Debug().Err(err).Msg("save history failed")
		}
	}()

	for {
		text, err := line.Prompt(sh.prompt())
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(sh.out)
			return nil
		case err != nil:
			return err
		}

		if strings.TrimSpace(text) != "" {
			line.AppendHistory(text)
		}
		if sh.handle(text) {
			return nil
		}
	}
}

// handle runs one command line and reports whether the shell should exit.
func (sh *shell) handle(text string) bool {
	err := sh.exec(strings.Fields(text))
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		fmt.Fprintln(sh.out, "error:", err)
	}
	return false
}

func (sh *shell) prompt() string {
	if sh.session.State() == session.Attached {
		return fmt.Sprintf("procmem[%d]> ", sh.session.PID())
	}
	return "procmem> "
}

func (sh *shell) exec(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "ps":
		if len(args) > 0 {
			writeProcesses(sh.out, sh.session.Find(args[0]))
		} else {
			writeProcesses(sh.out, sh.session.Processes())
		}
	case "attach":
		return sh.attach(args)
	case "detach":
		if !sh.session.Detach() {
			return session.ErrDetached
		}
	case "status":
		fmt.Fprintf(sh.out, "%s pid=%d rights=%s\n", sh.session.State(), sh.session.PID(), sh.session.Rights())
	case "read", "hex":
		return sh.read(cmd == "hex", args)
	case "write":
		if len(args) < 2 {
			return errors.New("usage: write <addr> <hex>...")
		}
		addr, err := process.ParseAddress(args[0])
		if err != nil {
			return err
		}
		return sh.session.WriteHex(addr, strings.Join(args[1:], " "))
	case "maps":
		regions, err := sh.session.MemoryMap()
		if err != nil {
			return err
		}
		for _, r := range regions {
			fmt.Fprintln(sh.out, r.String())
		}
	case "search":
		pattern, err := search.ParsePattern(strings.Join(args, " "))
		if err != nil {
			return err
		}
		found, err := sh.session.Search(pattern, search.WithMaxResults(100))
		if err != nil {
			return err
		}
		for _, addr := range found {
			fmt.Fprintln(sh.out, addr.ToString())
		}
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (sh *shell) attach(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: attach <pid> [rights]")
	}
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	rights := sh.rights
	if len(args) == 2 {
		if rights, err = process.ParseAccessRights(args[1]); err != nil {
			return err
		}
	}
	return sh.session.Attach(pid, rights)
}

func (sh *shell) read(pairs bool, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: read <addr> <size>")
	}
	addr, err := process.ParseAddress(args[0])
	if err != nil {
		return err
	}
	size, err := parseSizeLimit(args[1], sh.maxRead)
	if err != nil {
		return err
	}

	if pairs {
		text, err := sh.session.ReadHex(addr, size)
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, text)
		return nil
	}
	dump, err := sh.session.Dump(addr, size, sh.dumpOpts)
	if err != nil {
		return err
	}
	fmt.Fprint(sh.out, dump)
	return nil
}
