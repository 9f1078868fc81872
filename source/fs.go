package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Fs reads files from the local filesystem.
//
// A name is looked up as an absolute path first, then relative to the
// directory hint, then relative to every include directory in the order
// they were added. Content is cached by canonical path, so a header
// included from many places is read from disk once.
type Fs struct {
	dirs []string

	mu    sync.RWMutex
	cache map[string]string
}

// NewFs creates a filesystem source searching dirs. Every dir must exist
// and be a directory.
func NewFs(dirs ...string) (*Fs, error) {
	f := &Fs{cache: make(map[string]string)}
	for _, dir := range dirs {
		if err := f.AddDir(dir); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddDir appends dir to the include search path.
func (f *Fs) AddDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("include dir %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("include dir: %w", wrapFsError(err))
	}
	if !info.IsDir() {
		return fmt.Errorf("'%s' is not a directory: %w", abs, ErrInvalidData)
	}
	f.dirs = append(f.dirs, abs)
	return nil
}

// Dirs returns the absolute include directories in search order.
func (f *Fs) Dirs() []string {
	return append([]string(nil), f.dirs...)
}

// Forget drops path from the content cache so that the next read hits the
// disk again.
func (f *Fs) Forget(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, path)
}

func (f *Fs) cached(path string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	text, ok := f.cache[path]
	return text, ok
}

func (f *Fs) checkFile(path string) error {
	if _, ok := f.cached(path); ok {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return wrapFsError(err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("'%s' is not a file: %w", path, ErrInvalidData)
	}
	return nil
}

// findInDir reports "", nil when dir has no candidate for name.
func (f *Fs) findInDir(dir, name string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if err := f.checkFile(path); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

func (f *Fs) findFile(name, dir string) (string, error) {
	if filepath.IsAbs(name) {
		path := filepath.Clean(name)
		if err := f.checkFile(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if dir != "" {
		path, err := f.findInDir(dir, name)
		if err != nil || path != "" {
			return path, err
		}
	}

	for _, d := range f.dirs {
		path, err := f.findInDir(d, name)
		if err != nil || path != "" {
			return path, err
		}
	}

	return "", fmt.Errorf("file '%s' not found in any of include dirs: %w", name, ErrNotFound)
}

func (f *Fs) Read(name, dir string) (string, string, error) {
	path, err := f.findFile(name, dir)
	if err != nil {
		return "", "", err
	}
	if text, ok := f.cached(path); ok {
		return path, text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", wrapFsError(err)
	}
	text := string(data)
	log.Debugf("read %s (%d bytes)", path, len(data))

	f.mu.Lock()
	f.cache[path] = text
	f.mu.Unlock()
	return path, text, nil
}

func wrapFsError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
