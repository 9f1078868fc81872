package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dhamidi/unfold/format"
	"github.com/dhamidi/unfold/include"
	"github.com/spf13/cobra"
)

func newLocateCmd() *cobra.Command {
	var in inputFlags
	var indexPath string

	cmd := &cobra.Command{
		Use:   "locate [root] <line>",
		Short: "Print the file and line an output line was expanded from",
		Long: `Print the file and line an output line was expanded from.

Lines are 1-based. The root file is expanded again unless --index names a
JSON index written by expand.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var index *include.Index
			if indexPath != "" {
				if len(args) != 1 {
					return fmt.Errorf("with --index only the line is given")
				}
				f, err := os.Open(indexPath)
				if err != nil {
					return fmt.Errorf("open index: %w", err)
				}
				defer f.Close()
				result, err := format.DecodeJSONIndex(f)
				if err != nil {
					return fmt.Errorf("read index %s: %w", indexPath, err)
				}
				index = result.Index
			} else {
				if len(args) != 2 {
					return fmt.Errorf("need a root file and a line")
				}
				roots, err := absRoots(args[:1])
				if err != nil {
					return err
				}
				inp, err := in.load()
				if err != nil {
					return err
				}
				defer inp.Close()
				_, index, err = inp.parser().Expand(roots[0])
				if err != nil {
					return fmt.Errorf("expand %s: %w", roots[0], err)
				}
			}

			line, err := strconv.Atoi(args[len(args)-1])
			if err != nil || line < 1 {
				return fmt.Errorf("invalid line %q", args[len(args)-1])
			}
			loc, ok := index.Search(line - 1)
			if !ok {
				return fmt.Errorf("line %d is outside the expansion (%d lines)", line, index.Len())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d\n", loc.File, loc.Line+1)
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&indexPath, "index", "", "look the line up in a JSON index instead of expanding")

	return cmd
}
