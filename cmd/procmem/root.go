package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"procmem/config"
	"procmem/hexdump"
	"procmem/process"
	"procmem/process_host"
	"procmem/session"
)

var (
	Debug      bool
	ConfigFile string
	Access     string

	conf *config.Config
)

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "config file (default $HOME/.procmem/procmem.yaml)")
	rootCmd.PersistentFlags().StringVar(&Access, "access", "", "access rights, e.g. read,query or all")
	rootCmd.PersistentPreRunE = setup
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "procmem",
	Short: "inspect and patch the memory of running processes",
	Example: `procmem ps --name notepad
procmem read 4242 0x7FF612340000 64
procmem write 4242 0x7FF612340000 "4D 5A 90 00"
procmem shell`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if conf, err = config.Load(ConfigFile); err != nil {
		return err
	}
	if Access != "" {
		if conf.Access, err = process.ParseAccessRights(Access); err != nil {
			return err
		}
		if err := conf.Validate(); err != nil {
			return err
		}
	}
	initLog(Debug || conf.Debug)
	return nil
}

func newSession() (*session.Session, error) {
	sys, err := process_host.New()
	if err != nil {
		return nil, err
	}
	return session.New(sys), nil
}

// attach opens a session on pid text arg with the configured rights.
func attach(arg string) (*session.Session, error) {
	pid, err := parsePID(arg)
	if err != nil {
		return nil, err
	}
	s, err := newSession()
	if err != nil {
		return nil, err
	}
	if err := s.Attach(pid, conf.Access); err != nil {
		return nil, err
	}
	return s, nil
}

func parsePID(arg string) (process.ProcessID, error) {
	v, err := strconv.ParseUint(arg, 0, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid pid %q", arg)
	}
	return process.ProcessID(v), nil
}

func parseSize(arg string) (int, error) {
	return parseSizeLimit(arg, conf.MaxRead)
}

func parseSizeLimit(arg string, limit int) (int, error) {
	v, err := strconv.ParseInt(arg, 0, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid size %q", arg)
	}
	if v > int64(limit) {
		return 0, fmt.Errorf("size %d exceeds max_read %d", v, limit)
	}
	return int(v), nil
}

func dumpOptions() hexdump.HexDumpOptions {
	opts := hexdump.DefaultOptions()
	opts.BytesPerLine = conf.BytesPerLine
	opts.Color = conf.Color
	return opts
}
