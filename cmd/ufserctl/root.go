package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/arena"
)

var (
	verbose bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "ufserctl",
	Short: "Inspect and manipulate self-describing (T, V) serialized values",
	Long: `ufserctl encodes, decodes, scans, prints and edits values in the
self-describing binary format built from a type descriptor and a
length-prefixed value string.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{Verbose: verbose, JSON: jsonLog})
		arena.SetLogger(logger.L)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "log-json", false, "emit logs as JSON")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
