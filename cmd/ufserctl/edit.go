package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufser-go/ufser/cmd/ufserctl/logger"
	"github.com/ufser-go/ufser/pkg/textlit"
	"github.com/ufser-go/ufser/pkg/wview"
)

var (
	editType        string
	editValueHex    string
	editPath        string
	editSetLiteral  string
	editEraseAt     int
	editInsertAfter int
	editInsertValue string
	editInsertKey   string
	editMode        string
)

func init() {
	cmd := newEditCmd()
	addTypeValueFlags(cmd, &editType, &editValueHex)
	cmd.Flags().StringVar(&editPath, "path", "", "comma-separated child indices from the root to the node being edited")
	cmd.Flags().StringVar(&editSetLiteral, "set", "", "replace the node at --path with this text literal")
	cmd.Flags().IntVar(&editEraseAt, "erase", -1, "erase the element (or map pair) at this child index of the node at --path")
	cmd.Flags().IntVar(&editInsertAfter, "insert-after", -2, "insert after this child index of the node at --path (-1 prepends)")
	cmd.Flags().StringVar(&editInsertValue, "value", "", "text literal for --insert-after's element (or map value)")
	cmd.Flags().StringVar(&editInsertKey, "key", "", "text literal for --insert-after's map key")
	cmd.Flags().StringVar(&editMode, "mode", "native", "literal mode used by --set/--value/--key: native, liberal or json")
	rootCmd.AddCommand(cmd)
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Apply a single in-place mutation to a (T, V) tree and print the result",
		Long: `edit loads a (T, V) pair into a wview tree, navigates to --path (a
comma-separated list of child indices from the root), applies exactly
one of --set, --erase or --insert-after, and prints the tree's new
top-level type and hex-encoded value.

Example:
  ufserctl edit -t t2is -V <hex> --path 1 --set '"hello"'
  ufserctl edit -t li -V <hex> --path "" --erase 1
  ufserctl edit -t li -V <hex> --path "" --insert-after 0 --value 2`,
		RunE: runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	v, err := decodeHexValue(editValueHex)
	if err != nil {
		return err
	}
	root, werr := wview.New([]byte(editType), v)
	if werr != nil {
		return fail("invalid (T, V): %s", werr.Render())
	}

	target, err := navigate(root, editPath)
	if err != nil {
		return err
	}

	ops := 0
	if editSetLiteral != "" {
		ops++
	}
	if editEraseAt != -1 {
		ops++
	}
	if editInsertAfter != -2 {
		ops++
	}
	if ops != 1 {
		return fail("specify exactly one of --set, --erase or --insert-after")
	}

	mode, err := textlitModeFromFlag(editMode)
	if err != nil {
		return err
	}

	switch {
	case editSetLiteral != "":
		val, perr := textlit.Parse([]byte(editSetLiteral), textlit.Options{Mode: mode})
		if perr != nil {
			return fail("--set literal: %s", perr.Render())
		}
		logger.Debug("set", "path", editPath, "newType", string(val.T))
		if serr := target.Set(val.T, val.V); serr != nil {
			return fail("set failed: %s", serr.Render())
		}
	case editEraseAt != -1:
		logger.Debug("erase", "path", editPath, "at", editEraseAt)
		if serr := target.Erase(editEraseAt); serr != nil {
			return fail("erase failed: %s", serr.Render())
		}
	default:
		var keyV []byte
		if editInsertKey != "" {
			kv, perr := textlit.Parse([]byte(editInsertKey), textlit.Options{Mode: mode})
			if perr != nil {
				return fail("--key literal: %s", perr.Render())
			}
			keyV = kv.V
		}
		elemVal, perr := textlit.Parse([]byte(editInsertValue), textlit.Options{Mode: mode})
		if perr != nil {
			return fail("--value literal: %s", perr.Render())
		}
		logger.Debug("insert-after", "path", editPath, "at", editInsertAfter)
		if serr := target.InsertAfter(editInsertAfter, elemVal.V, keyV); serr != nil {
			return fail("insert-after failed: %s", serr.Render())
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "type:  %s\nvalue: %s\n", root.Type(), hex.EncodeToString(root.Value()))
	return nil
}

// navigate walks path (comma-separated child indices, empty meaning
// "the root itself") down from root via repeated Child calls.
func navigate(root *wview.Node, path string) (*wview.Node, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return root, nil
	}
	cur := root
	for _, part := range strings.Split(path, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fail("invalid --path segment %q: %w", part, err)
		}
		child, werr := cur.Child(idx)
		if werr != nil {
			return nil, fail("navigating to child %d: %s", idx, werr.Render())
		}
		cur = child
	}
	return cur, nil
}
