package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/source"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the project file looked up by Load.
const FileName = "unfold.yaml"

var log = commonlog.GetLogger("unfold.project")

// Project represents a set of root files expanded with a shared search
// path and flag set.
type Project struct {
	// RootDir is the directory holding the project file. Relative paths in
	// the file are resolved against it.
	RootDir     string
	IncludeDirs []string
	Archives    []string
	Flags       map[string]bool
	Targets     []*Target
}

// Target is one root file and where its expansion goes.
type Target struct {
	Root   string
	Output string
	Index  string
}

type projectFile struct {
	IncludeDirs []string        `yaml:"include_dirs"`
	Archives    []string        `yaml:"archives"`
	Flags       map[string]bool `yaml:"flags"`
	Targets     []targetFile    `yaml:"targets"`
}

type targetFile struct {
	Root   string `yaml:"root"`
	Output string `yaml:"output"`
	Index  string `yaml:"index"`
}

// Load looks for unfold.yaml in the current directory and its parents.
func Load() (*Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return LoadFrom(dir)
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	return nil, fmt.Errorf("could not find %s in %s or any parent: %w", FileName, wd, os.ErrNotExist)
}

// LoadFrom reads unfold.yaml from rootDir.
func LoadFrom(rootDir string) (*Project, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(rootDir, FileName))
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	return Parse(rootDir, data)
}

// Parse decodes a project file whose relative paths are relative to
// rootDir.
func Parse(rootDir string, data []byte) (*Project, error) {
	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}

	proj := &Project{
		RootDir: rootDir,
		Flags:   make(map[string]bool),
	}
	for _, dir := range pf.IncludeDirs {
		proj.IncludeDirs = append(proj.IncludeDirs, proj.Path(dir))
	}
	for _, archive := range pf.Archives {
		proj.Archives = append(proj.Archives, proj.Path(archive))
	}
	for name, value := range pf.Flags {
		proj.Flags[name] = value
	}
	for i, t := range pf.Targets {
		if t.Root == "" {
			return nil, fmt.Errorf("target %d: missing root", i)
		}
		proj.Targets = append(proj.Targets, &Target{
			Root:   proj.Path(t.Root),
			Output: proj.optionalPath(t.Output),
			Index:  proj.optionalPath(t.Index),
		})
	}

	log.Debugf("loaded project %s: %d include dirs, %d targets", rootDir, len(proj.IncludeDirs), len(proj.Targets))
	return proj, nil
}

// Path resolves p against the project root.
func (p *Project) Path(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.RootDir, path)
}

func (p *Project) optionalPath(path string) string {
	if path == "" {
		return ""
	}
	return p.Path(path)
}

// Source builds the provider chain of the project: the filesystem with the
// include directories first, then every archive in order. The returned
// closer releases the archives.
func (p *Project) Source() (source.Source, func() error, error) {
	fsrc, err := source.NewFs(p.IncludeDirs...)
	if err != nil {
		return nil, nil, err
	}

	list := source.NewList(fsrc)
	var archives []*source.Zip
	closeAll := func() error {
		var errs []error
		for _, z := range archives {
			errs = append(errs, z.Close())
		}
		return errors.Join(errs...)
	}

	for _, path := range p.Archives {
		z, err := source.OpenZip(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		archives = append(archives, z)
		list.Add(z)
	}
	return list, closeAll, nil
}

// Parser returns a parser over src using the project flags, with
// overrides applied on top.
func (p *Project) Parser(src source.Source, overrides map[string]bool) *include.Parser {
	return include.NewParser(src, include.WithFlags(p.Flags), include.WithFlags(overrides))
}

// Target returns the target whose root is path, or nil if not found.
func (p *Project) Target(path string) *Target {
	path = p.Path(path)
	for _, t := range p.Targets {
		if t.Root == path {
			return t
		}
	}
	return nil
}

// EnsureOutputDirs creates the directories the target writes to.
func (t *Target) EnsureOutputDirs() error {
	for _, path := range []string{t.Output, t.Index} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
	}
	return nil
}
