package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"procmem/process"
	"procmem/search"
)

var readHex bool

func init() {
	readCmd.Flags().BoolVar(&readHex, "hex", false, "print space separated hex pairs instead of a dump")
	rootCmd.AddCommand(readCmd, writeCmd, mapsCmd)
}

var readCmd = &cobra.Command{
	Use:   "read <pid> <address> <size>",
	Short: "read process memory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := process.ParseAddress(args[1])
		if err != nil {
			return err
		}
		size, err := parseSize(args[2])
		if err != nil {
			return err
		}
		s, err := attach(args[0])
		if err != nil {
			return err
		}
		defer s.Detach()

		if readHex {
			text, err := s.ReadHex(addr, size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}

		dump, err := s.Dump(addr, size, dumpOptions())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), dump)
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <pid> <address> <hex>...",
	Short: "write hex bytes to process memory",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := process.ParseAddress(args[1])
		if err != nil {
			return err
		}
		s, err := attach(args[0])
		if err != nil {
			return err
		}
		defer s.Detach()

		text := strings.Join(args[2:], " ")
		if err := s.WriteHex(addr, text); err != nil {
			return err
		}
		log.Info().Msgf("wrote %s at %s", text, addr.ToString())
		return nil
	},
}

var mapsCmd = &cobra.Command{
	Use:   "maps <pid>",
	Short: "list the memory regions of a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := attach(args[0])
		if err != nil {
			return err
		}
		defer s.Detach()

		regions, err := s.MemoryMap()
		if err != nil {
			return err
		}
		for _, r := range regions {
			fmt.Fprintln(cmd.OutOrStdout(), r.String())
		}
		return nil
	},
}

var searchMax int

func init() {
	searchCmd.Flags().IntVar(&searchMax, "max", 100, "stop after this many matches")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <pid> <pattern>...",
	Short: "find a byte pattern such as \"4D 5A ?? 00\" in readable memory",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, err := search.ParsePattern(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		s, err := attach(args[0])
		if err != nil {
			return err
		}
		defer s.Detach()

		found, err := s.Search(pattern, search.WithMaxResults(searchMax))
		if err != nil {
			return err
		}
		log.Info().Msgf("found %d matches for %s", len(found), pattern)
		for _, addr := range found {
			fmt.Fprintln(cmd.OutOrStdout(), addr.ToString())
		}
		return nil
	},
}
