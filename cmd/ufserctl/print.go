package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/printer"
)

var (
	printType       string
	printValueHex   string
	printFormat     string
	printMaxLen     int
	printStrictKeys bool
)

func init() {
	cmd := newPrintCmd()
	addTypeValueFlags(cmd, &printType, &printValueHex)
	cmd.Flags().StringVar(&printFormat, "format", "native", "output shape: native or json")
	cmd.Flags().IntVar(&printMaxLen, "max-len", 0, "cap the rendered output length (0 = unlimited)")
	cmd.Flags().BoolVar(&printStrictKeys, "strict-json-keys", false, "error on non-string map keys instead of stringifying them")
	rootCmd.AddCommand(cmd)
}

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Render a (T, V) pair as native or JSON-like text",
		RunE:  runPrint,
	}
}

func runPrint(cmd *cobra.Command, args []string) error {
	v, err := decodeHexValue(printValueHex)
	if err != nil {
		return err
	}
	format := printer.Native
	switch strings.ToLower(printFormat) {
	case "native":
		format = printer.Native
	case "json":
		format = printer.JSONLike
	default:
		return fail("unknown --format %q (want native or json)", printFormat)
	}
	logger.Debug("printing", "type", printType, "format", printFormat)
	out, perr := printer.Print([]byte(printType), v, printer.Options{
		Format:         format,
		MaxLen:         printMaxLen,
		StrictJSONKeys: printStrictKeys,
	})
	if perr != nil {
		return fail("print failed: %s", perr.Render())
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
