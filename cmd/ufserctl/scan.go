package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/scan"
)

var (
	scanType     string
	scanValueHex string
	scanRecurse  bool
)

func init() {
	cmd := newScanCmd()
	addTypeValueFlags(cmd, &scanType, &scanValueHex)
	cmd.Flags().BoolVar(&scanRecurse, "recursive", false, "validate nested `a` payloads against their declared type too")
	rootCmd.AddCommand(cmd)
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Validate a (T, V) pair against the type grammar",
		RunE:  runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	v, err := decodeHexValue(scanValueHex)
	if err != nil {
		return err
	}
	logger.Debug("scanning", "type", scanType)
	if serr := scan.ScanFull([]byte(scanType), v, scanRecurse); serr != nil {
		return fail("invalid: %s", serr.Render())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
