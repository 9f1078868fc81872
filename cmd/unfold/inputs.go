package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/project"
	"github.com/dhamidi/unfold/source"
	"github.com/spf13/cobra"
)

// inputFlags are the flags shared by every command that expands files.
type inputFlags struct {
	includeDirs []string
	archives    []string
	defines     []string
	undefines   []string
	noProject   bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.includeDirs, "include", "I", nil, "add a directory to the include search path")
	cmd.Flags().StringArrayVar(&f.archives, "archive", nil, "search a .zip archive after the include directories")
	cmd.Flags().StringArrayVarP(&f.defines, "define", "D", nil, "set a flag: NAME or NAME=0|1|true|false")
	cmd.Flags().StringArrayVarP(&f.undefines, "undefine", "U", nil, "set a flag to false")
	cmd.Flags().BoolVar(&f.noProject, "no-project", false, "ignore "+project.FileName)
}

// inputs is everything needed to expand root files: the provider chain,
// the flag set and the project, if one was found.
type inputs struct {
	proj    *project.Project
	src     source.Source
	flags   map[string]bool
	closers []func() error
}

func (in *inputs) parser() *include.Parser {
	return include.NewParser(in.src, include.WithFlags(in.flags))
}

func (in *inputs) Close() error {
	var errs []error
	for _, c := range in.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// load builds the inputs: command line include directories and archives
// come first, then the sources of the project file.
func (f *inputFlags) load() (*inputs, error) {
	in := &inputs{flags: make(map[string]bool)}

	if !f.noProject {
		proj, err := project.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		in.proj = proj
	}

	fsrc, err := source.NewFs(f.includeDirs...)
	if err != nil {
		return nil, fmt.Errorf("include directories: %w", err)
	}
	list := source.NewList(fsrc)

	for _, path := range f.archives {
		z, err := source.OpenZip(path)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		in.closers = append(in.closers, z.Close)
		list.Add(z)
	}

	if in.proj != nil {
		src, closeSrc, err := in.proj.Source()
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("project sources: %w", err)
		}
		in.closers = append(in.closers, closeSrc)
		list.Add(src)
		for name, value := range in.proj.Flags {
			in.flags[name] = value
		}
	}
	in.src = list

	for _, def := range f.defines {
		name, value, err := parseDefine(def)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.flags[name] = value
	}
	for _, name := range f.undefines {
		in.flags[name] = false
	}
	return in, nil
}

// parseDefine parses NAME or NAME=VALUE, where VALUE is a boolean.
func parseDefine(def string) (string, bool, error) {
	name, raw, hasValue := strings.Cut(def, "=")
	if name == "" {
		return "", false, fmt.Errorf("-D %q: missing flag name", def)
	}
	if !hasValue {
		return name, true, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return "", false, fmt.Errorf("-D %s: value must be 0, 1, true or false", def)
	}
	return name, value, nil
}

// absRoots makes roots given on the command line absolute, so that they
// are found independently of the include directories.
func absRoots(roots []string) ([]string, error) {
	abs := make([]string, len(roots))
	for i, root := range roots {
		p, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		abs[i] = p
	}
	return abs, nil
}
