package source

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Zip serves files stored in a zip archive, such as a bundle of shared
// headers shipped next to a toolchain.
//
// Entries are identified as "<archive>!<entry>". A quoted include inside an
// entry resolves relative to that entry's directory within the archive.
type Zip struct {
	path   string
	reader *zip.ReadCloser

	files map[string]*zip.File
	dirs  map[string]bool

	mu    sync.Mutex
	cache map[string]string
}

// OpenZip opens the archive at zipPath and indexes its entries.
func OpenZip(zipPath string) (*Zip, error) {
	abs, err := filepath.Abs(zipPath)
	if err != nil {
		return nil, err
	}
	r, err := zip.OpenReader(abs)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", wrapFsError(err))
	}

	z := &Zip{
		path:   abs,
		reader: r,
		files:  make(map[string]*zip.File),
		dirs:   make(map[string]bool),
		cache:  make(map[string]string),
	}
	for _, f := range r.File {
		name := path.Clean(f.Name)
		if f.FileInfo().IsDir() {
			z.dirs[name] = true
			continue
		}
		z.files[name] = f
		for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
			z.dirs[dir] = true
		}
	}
	log.Debugf("indexed archive %s: %d files", abs, len(z.files))
	return z, nil
}

func (z *Zip) Path() string {
	return z.path
}

func (z *Zip) Close() error {
	return z.reader.Close()
}

func (z *Zip) id(entry string) string {
	return z.path + "!" + entry
}

// entryDir maps a directory hint to a directory inside this archive.
// Hints that point elsewhere are ignored.
func (z *Zip) entryDir(dir string) (string, bool) {
	prefix := z.path + "!"
	if !strings.HasPrefix(dir, prefix) {
		return "", false
	}
	return strings.TrimPrefix(dir, prefix), true
}

func (z *Zip) lookup(entry string) (string, error) {
	entry = path.Clean(strings.TrimPrefix(filepath.ToSlash(entry), "/"))
	if z.dirs[entry] {
		return "", fmt.Errorf("'%s' is not a file: %w", z.id(entry), ErrInvalidData)
	}
	f, ok := z.files[entry]
	if !ok {
		return "", nil
	}
	return entry, z.load(entry, f)
}

func (z *Zip) load(entry string, f *zip.File) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.cache[entry]; ok {
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", z.id(entry), err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", z.id(entry), err)
	}
	z.cache[entry] = string(content)
	return nil
}

func (z *Zip) Read(name, dir string) (string, string, error) {
	var candidates []string
	if d, ok := z.entryDir(dir); ok {
		candidates = append(candidates, path.Join(filepath.ToSlash(d), filepath.ToSlash(name)))
	}
	candidates = append(candidates, name)

	for _, c := range candidates {
		entry, err := z.lookup(c)
		if err != nil {
			return "", "", err
		}
		if entry == "" {
			continue
		}
		z.mu.Lock()
		text := z.cache[entry]
		z.mu.Unlock()
		return z.id(entry), text, nil
	}
	return "", "", fmt.Errorf("path: %s, dir: %q in %s: %w", name, dir, z.path, ErrNotFound)
}
