package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/pkg/convert"
)

// addTypeValueFlags registers the -t/--type and -V/--value-hex flags
// shared by scan, print, decode and edit: every one of them operates on
// an already-serialized (T, V) pair rather than a text literal.
func addTypeValueFlags(cmd *cobra.Command, typ, valueHex *string) {
	cmd.Flags().StringVarP(typ, "type", "t", "", "type descriptor")
	cmd.Flags().StringVarP(valueHex, "value-hex", "V", "", "hex-encoded value bytes")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("value-hex")
}

func decodeHexValue(s string) ([]byte, error) {
	v, err := hex.DecodeString(s)
	if err != nil {
		return nil, fail("invalid hex in --value-hex: %w", err)
	}
	return v, nil
}

// policyFromFlags resolves the CLI's --policy name to one of
// pkg/convert's named presets.
func policyFromFlags(name string) (convert.Policy, error) {
	switch name {
	case "none":
		return convert.None, nil
	case "all":
		return convert.All, nil
	case "numeric":
		return convert.Numeric, nil
	case "lossless":
		return convert.Lossless, nil
	default:
		return 0, fail("unknown --policy %q (want none, all, numeric or lossless)", name)
	}
}
