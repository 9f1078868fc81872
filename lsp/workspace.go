package lsp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/project"
	"github.com/dhamidi/unfold/source"
)

// Workspace holds the open documents of an editor session and the provider
// chain used to resolve their includes. Open buffers shadow the files on
// disk, so diagnostics follow unsaved edits.
type Workspace struct {
	mu      sync.RWMutex
	rootDir string
	buffers map[string]string
	docs    map[string]*Document

	base      source.Source
	closeBase func() error
	flags     map[string]bool
}

// Document is the analysis of one open file.
type Document struct {
	Path     string
	Content  string
	Includes []Include
	Err      error
}

// Include is a resolved #include directive of a document.
type Include struct {
	// Line is the 0-based line of the directive, Start and End the columns
	// of the included name, brackets excluded.
	Line       int
	Start, End int
	Target     string
	// Lines is how many output lines the include expands to.
	Lines int
}

func NewWorkspace(rootDir string) *Workspace {
	w := &Workspace{
		rootDir: rootDir,
		buffers: make(map[string]string),
		docs:    make(map[string]*Document),
	}
	w.Reload()
	return w
}

func (w *Workspace) RootDir() string {
	return w.rootDir
}

// Reload rebuilds the provider chain, dropping anything cached from disk.
// The project file in the root directory is used when there is one.
func (w *Workspace) Reload() {
	base, closeBase, flags := w.loadBase()

	w.mu.Lock()
	old := w.closeBase
	w.base, w.closeBase, w.flags = base, closeBase, flags
	w.mu.Unlock()

	if old != nil {
		if err := old(); err != nil {
			log.Warningf("close sources: %v", err)
		}
	}
}

func (w *Workspace) loadBase() (source.Source, func() error, map[string]bool) {
	if proj, err := project.LoadFrom(w.rootDir); err == nil {
		src, closeSrc, err := proj.Source()
		if err == nil {
			log.Infof("using project file in %s", w.rootDir)
			return source.NewList(src, w.rootSource()), closeSrc, proj.Flags
		}
		log.Warningf("project sources: %v", err)
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warningf("project file: %v", err)
	}
	return w.rootSource(), nil, nil
}

func (w *Workspace) rootSource() source.Source {
	fsrc, err := source.NewFs(w.rootDir)
	if err != nil {
		log.Warningf("root directory: %v", err)
		fsrc, _ = source.NewFs()
	}
	return fsrc
}

func (w *Workspace) buffer(path string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	text, ok := w.buffers[filepath.Clean(path)]
	return text, ok
}

// Read implements source.Source with open buffers taking precedence over
// the base chain.
func (w *Workspace) Read(name, dir string) (string, string, error) {
	if dir != "" && !filepath.IsAbs(name) {
		path := filepath.Join(dir, name)
		if text, ok := w.buffer(path); ok {
			return path, text, nil
		}
	}
	if filepath.IsAbs(name) {
		if text, ok := w.buffer(name); ok {
			return filepath.Clean(name), text, nil
		}
	}

	w.mu.RLock()
	base := w.base
	w.mu.RUnlock()

	id, text, err := base.Read(name, dir)
	if err != nil {
		return "", "", err
	}
	if buf, ok := w.buffer(id); ok {
		text = buf
	}
	return id, text, nil
}

// Open records the content of an open document and analyzes it.
func (w *Workspace) Open(path, content string) *Document {
	path = filepath.Clean(path)
	w.mu.Lock()
	w.buffers[path] = content
	w.mu.Unlock()
	return w.Analyze(path)
}

// Close forgets the buffer of path; the file on disk is used again.
func (w *Workspace) Close(path string) {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.buffers, path)
	delete(w.docs, path)
}

func (w *Workspace) Document(path string) *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.docs[filepath.Clean(path)]
}

// Analyze expands path and records its includes and the error, if any.
func (w *Workspace) Analyze(path string) *Document {
	path = filepath.Clean(path)
	content, _ := w.buffer(path)

	w.mu.RLock()
	flags := w.flags
	w.mu.RUnlock()

	doc := &Document{Path: path, Content: content}
	node, err := include.NewParser(w, include.WithFlags(flags)).Parse(path)
	if err != nil {
		doc.Err = err
	} else {
		doc.Includes = w.includesOf(path, node, content)
	}

	w.mu.Lock()
	w.docs[path] = doc
	w.mu.Unlock()
	return doc
}

// Reanalyze refreshes every open document, for example after a file they
// depend on changed on disk.
func (w *Workspace) Reanalyze() []*Document {
	w.mu.RLock()
	paths := make([]string, 0, len(w.buffers))
	for path := range w.buffers {
		paths = append(paths, path)
	}
	w.mu.RUnlock()

	docs := make([]*Document, 0, len(paths))
	for _, path := range paths {
		docs = append(docs, w.Analyze(path))
	}
	return docs
}

// includesOf lists the includes of the document at path in line order.
// Includes spliced into node carry their expanded size; an include that
// produced no child, because #pragma once dropped it or a closed
// conditional skipped it, is resolved on its own and expands to nothing.
func (w *Workspace) includesOf(path string, node *include.Node, content string) []Include {
	spliced := make(map[int]*include.Node)
	for i, child := range node.Children() {
		spliced[node.SpliceLine(i)-1] = child
	}

	var includes []Include
	for line, text := range strings.Split(content, "\n") {
		name, quoted, ok := include.IncludeDirective(text)
		if !ok {
			continue
		}
		inc := Include{Line: line}
		inc.Start, inc.End = includeSpan(text)

		if child, ok := spliced[line]; ok {
			inc.Target = child.Name()
			inc.Lines = lineCount(child)
		} else {
			var dir string
			if quoted {
				dir = source.Dir(path)
			}
			id, _, err := w.Read(name, dir)
			if err != nil {
				log.Debugf("%s:%d: %v", path, line+1, err)
				continue
			}
			inc.Target = id
		}
		includes = append(includes, inc)
	}
	return includes
}

// lineCount is the number of output lines node expands to.
func lineCount(node *include.Node) int {
	n := 0
	node.Walk(func(node *include.Node, depth int) bool {
		n += node.LineCount()
		return true
	})
	return n
}

// includeSpan returns the columns of the name between the brackets of an
// #include line, in UTF-16 code units as editors count them.
func includeSpan(line string) (int, int) {
	start := strings.IndexAny(line, `<"`)
	if start < 0 {
		return 0, utf16Len(line)
	}
	start++
	end := strings.IndexAny(line[start:], `>"`)
	if end < 0 {
		end = len(line)
	} else {
		end += start
	}
	return utf16Len(line[:start]), utf16Len(line[:end])
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// IncludeAt returns the include of doc on the 0-based line, or nil.
func (d *Document) IncludeAt(line int) *Include {
	for i := range d.Includes {
		if d.Includes[i].Line == line {
			return &d.Includes[i]
		}
	}
	return nil
}
