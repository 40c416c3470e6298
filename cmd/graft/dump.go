package main

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Print the syntax tree of a source file",
	Long:  "Parses FILE with the configured policies and prints one node per line with its id, kind, label and ordering. Useful when writing policy scripts.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	w, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
	s, err := loadSettings(cmd)
	if err != nil {
		return outputError(w, errw, flagFormat, "dump", err)
	}
	s.statsDB = ""

	engine, err := newEngine(s)
	if err != nil {
		return outputError(w, errw, s.format, "dump", err)
	}
	defer engine.Close()

	tree, err := engine.Dump(cmd.Context(), args[0])
	if err != nil {
		return outputError(w, errw, s.format, "dump", err)
	}
	return outputResult(w, s.format, CLIResult{Command: "dump", Results: tree})
}
