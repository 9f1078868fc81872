package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/unfold/format"
	"github.com/dhamidi/unfold/project"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newExpandCmd() *cobra.Command {
	var in inputFlags
	var output string
	var indexPath string
	var lineMap bool

	cmd := &cobra.Command{
		Use:   "expand [root...]",
		Short: "Expand the includes of root files and print the flattened text",
		Long: `Expand the includes of root files and print the flattened text.

Without arguments every target of the project file is expanded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inp, err := in.load()
			if err != nil {
				return err
			}
			defer inp.Close()

			if len(args) == 0 {
				if inp.proj == nil {
					return fmt.Errorf("no root file given and no %s found", project.FileName)
				}
				return expandTargets(cmd.Context(), inp, inp.proj.Targets)
			}

			if len(args) > 1 && (output != "" || indexPath != "") {
				return errors.New("-o and --index need a single root file")
			}
			roots, err := absRoots(args)
			if err != nil {
				return err
			}

			for _, root := range roots {
				node, err := inp.parser().Parse(root)
				if err != nil {
					return fmt.Errorf("expand %s: %w", root, err)
				}
				result := format.NewResult(root, node)

				var encoder format.Encoder
				switch {
				case lineMap:
					encoder = format.NewLineEncoder(cmd.OutOrStdout())
				case output == "":
					encoder = format.NewTextEncoder(cmd.OutOrStdout())
				}
				if encoder != nil {
					if err := encoder.Encode(result); err != nil {
						return fmt.Errorf("encode: %w", err)
					}
				}

				if output != "" {
					err = writeFile(output, func(w io.Writer) error {
						return format.NewTextEncoder(w).Encode(result)
					})
					if err != nil {
						return err
					}
				}
				if indexPath != "" {
					err = writeFile(indexPath, func(w io.Writer) error {
						return format.NewJSONEncoder(w).Encode(result)
					})
					if err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the flattened text to a file")
	cmd.Flags().StringVar(&indexPath, "index", "", "write the line index as JSON to a file")
	cmd.Flags().BoolVar(&lineMap, "map", false, "print the origin of every output line instead of the text")

	return cmd
}

// expandTargets expands every target concurrently, each with its own
// parser, and stops at the first failure.
func expandTargets(ctx context.Context, inp *inputs, targets []*project.Target) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return expandTarget(inp, t)
		})
	}
	return g.Wait()
}

func expandTarget(inp *inputs, t *project.Target) error {
	if t.Output == "" && t.Index == "" {
		return fmt.Errorf("target %s: no output or index configured", t.Root)
	}

	node, err := inp.parser().Parse(t.Root)
	if err != nil {
		return fmt.Errorf("expand %s: %w", t.Root, err)
	}
	return writeTarget(t, format.NewResult(t.Root, node))
}

// writeTarget writes the text and the index of result where t says.
func writeTarget(t *project.Target, result *format.Result) error {
	if err := t.EnsureOutputDirs(); err != nil {
		return fmt.Errorf("target %s: %w", t.Root, err)
	}
	if t.Output != "" {
		err := writeFile(t.Output, func(w io.Writer) error {
			return format.NewTextEncoder(w).Encode(result)
		})
		if err != nil {
			return err
		}
	}
	if t.Index != "" {
		err := writeFile(t.Index, func(w io.Writer) error {
			return format.NewJSONEncoder(w).Encode(result)
		})
		if err != nil {
			return err
		}
	}
	log.Infof("expanded %s: %d lines", t.Root, result.Index.Len())
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
