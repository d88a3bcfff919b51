package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/textlit"
)

var (
	encodeMode     string
	encodePolicy   string
	encodeStrictJK bool
)

func init() {
	cmd := newEncodeCmd()
	cmd.Flags().StringVar(&encodeMode, "mode", "native", "literal mode: native, liberal or json")
	cmd.Flags().StringVar(&encodePolicy, "policy", "all", "conversion policy for typed literals: none, all, numeric or lossless")
	cmd.Flags().BoolVar(&encodeStrictJK, "strict-json-keys", false, "reject non-string map keys in json mode")
	rootCmd.AddCommand(cmd)
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <literal>",
		Short: "Parse a text literal into a (T, V) pair",
		Long: `encode parses a text literal such as 42, "hi", [1,2,3] or
<t2is>(1,"hi") and prints the resulting type descriptor and the
hex-encoded value bytes.

Example:
  ufserctl encode '[1,2,3]'
  ufserctl encode --mode=json '{"a":1,"b":"x"}'`,
		Args: cobra.ExactArgs(1),
		RunE: runEncode,
	}
}

func runEncode(cmd *cobra.Command, args []string) error {
	mode, err := textlitModeFromFlag(encodeMode)
	if err != nil {
		return err
	}
	policy, err := policyFromFlags(encodePolicy)
	if err != nil {
		return err
	}
	logger.Debug("encoding literal", "literal", args[0], "mode", encodeMode)

	val, perr := textlit.Parse([]byte(args[0]), textlit.Options{
		Mode:           mode,
		Policy:         policy,
		StrictJSONKeys: encodeStrictJK,
	})
	if perr != nil {
		return fail("parse failed: %s", perr.Render())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "type:  %s\nvalue: %s\n", val.T, hex.EncodeToString(val.V))
	return nil
}

func textlitModeFromFlag(name string) (textlit.Mode, error) {
	switch strings.ToLower(name) {
	case "native":
		return textlit.Native, nil
	case "liberal":
		return textlit.Liberal, nil
	case "json":
		return textlit.JSON, nil
	default:
		return 0, fail("unknown --mode %q (want native, liberal or json)", name)
	}
}
