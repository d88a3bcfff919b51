package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/convert"
	"github.com/ufser-go/ufser/pkg/errval"
)

var (
	decodeType            string
	decodeValueHex        string
	decodeTarget          string
	decodePolicy          string
	decodeShowUnplaceable bool
)

func init() {
	cmd := newDecodeCmd()
	addTypeValueFlags(cmd, &decodeType, &decodeValueHex)
	cmd.Flags().StringVar(&decodeTarget, "to", "", "target type descriptor to convert into")
	cmd.Flags().StringVar(&decodePolicy, "policy", "all", "conversion policy: none, all, numeric or lossless")
	cmd.Flags().BoolVar(&decodeShowUnplaceable, "show-unplaceable", false, "report unplaceable expected-errors instead of silently erroring")
	cmd.MarkFlagRequired("to")
	rootCmd.AddCommand(cmd)
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode",
		Short: "Convert a (T, V) pair to a different target type",
		Long: `decode runs the engine's conversion state machine, turning a
source (T, V) pair into the requested target type under the given
conversion policy. Expected-value conversions that can't place the
source's carried error into the target are reported individually via
--show-unplaceable.`,
		RunE: runDecode,
	}
}

func runDecode(cmd *cobra.Command, args []string) error {
	v, err := decodeHexValue(decodeValueHex)
	if err != nil {
		return err
	}
	policy, perr := policyFromFlags(decodePolicy)
	if perr != nil {
		return perr
	}
	logger.Debug("decoding", "from", decodeType, "to", decodeTarget)

	var sink *errval.Sink
	if decodeShowUnplaceable {
		sink = &errval.Sink{}
	}
	out, cerr := convert.Convert([]byte(decodeType), v, []byte(decodeTarget), policy, sink)
	if cerr != nil {
		return fail("conversion failed: %s", cerr.Render())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "type:  %s\nvalue: %s\n", decodeTarget, hex.EncodeToString(out))
	if sink != nil {
		for _, u := range sink.Items {
			fmt.Fprintf(cmd.ErrOrStderr(), "unplaceable at source %d / target %d: %s: %s\n",
				u.SourcePos, u.TargetPos, u.Error.Kind, u.Error.Message)
		}
	}
	return nil
}
