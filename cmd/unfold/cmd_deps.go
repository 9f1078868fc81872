package main

import (
	"fmt"

	"github.com/dhamidi/unfold/format"
	"github.com/dhamidi/unfold/watch"
	"github.com/spf13/cobra"
)

func newDepsCmd() *cobra.Command {
	var in inputFlags
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "deps <root>",
		Short: "Print the include tree of a root file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := absRoots(args)
			if err != nil {
				return err
			}
			inp, err := in.load()
			if err != nil {
				return err
			}
			defer inp.Close()

			node, err := inp.parser().Parse(roots[0])
			if err != nil {
				return fmt.Errorf("expand %s: %w", roots[0], err)
			}

			out := cmd.OutOrStdout()
			switch outputFormat {
			case "tree":
				return format.NewTreeEncoder(out).Encode(node)
			case "json":
				return format.NewTreeJSONEncoder(out).Encode(node)
			case "files":
				for _, path := range watch.Files(node) {
					fmt.Fprintln(out, path)
				}
				return nil
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "tree", "output format (tree, json, files)")

	return cmd
}
