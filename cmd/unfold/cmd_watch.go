package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dhamidi/unfold/format"
	"github.com/dhamidi/unfold/project"
	"github.com/dhamidi/unfold/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var in inputFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [root...]",
		Short: "Expand root files again whenever a file they include changes",
		Long: `Expand root files again whenever a file they include changes.

Without arguments the targets of the project file are watched. Roots given
as arguments are printed to standard output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := absRoots(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b := &builder{in: &in, roots: roots, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

			var fw *watch.FileWatcher
			fw, err = watch.NewFileWatcher(func(changed []string) {
				log.Infof("changed: %v", changed)
				if err := fw.SetFiles(b.build()); err != nil {
					log.Warningf("watch: %v", err)
				}
			}, debounce)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}

			if err := fw.SetFiles(b.build()); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			if err := fw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "wait this long for more changes before rebuilding")

	return cmd
}

// builder expands the watched targets and remembers which files each one
// depends on, so a target that fails to expand keeps its previous set.
type builder struct {
	in     *inputFlags
	roots  []string
	out    io.Writer
	errOut io.Writer

	files map[string][]string
}

// build expands every target with freshly loaded inputs and returns the
// files to watch.
func (b *builder) build() []string {
	if b.files == nil {
		b.files = make(map[string][]string)
	}

	inp, err := b.in.load()
	if err != nil {
		fmt.Fprintf(b.errOut, "error: %v\n", err)
		return b.watched(nil)
	}
	defer inp.Close()

	targets := make([]*project.Target, 0, len(b.roots))
	for _, root := range b.roots {
		targets = append(targets, &project.Target{Root: root})
	}
	if len(targets) == 0 && inp.proj != nil {
		targets = inp.proj.Targets
	}

	for _, t := range targets {
		node, err := inp.parser().Parse(t.Root)
		if err != nil {
			fmt.Fprintf(b.errOut, "error: expand %s: %v\n", t.Root, err)
			if len(b.files[t.Root]) == 0 {
				b.files[t.Root] = []string{t.Root}
			}
			continue
		}
		b.files[t.Root] = watch.Files(node)

		result := format.NewResult(t.Root, node)
		if t.Output == "" && t.Index == "" {
			err = format.NewTextEncoder(b.out).Encode(result)
		} else {
			err = writeTarget(t, result)
		}
		if err != nil {
			fmt.Fprintf(b.errOut, "error: %v\n", err)
		}
	}
	return b.watched(inp.proj)
}

func (b *builder) watched(proj *project.Project) []string {
	var paths []string
	for _, files := range b.files {
		paths = append(paths, files...)
	}
	if proj != nil {
		paths = append(paths, filepath.Join(proj.RootDir, project.FileName))
	}
	return paths
}
