// Package source provides the content providers the include engine reads
// files through.
//
// A provider maps a name as written in an #include directive, plus an
// optional directory hint, to a canonical identifier and the file's text.
// Providers compose: a List tries its members in order and only falls
// through on ErrNotFound.
package source

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

var (
	// ErrNotFound reports that no candidate location yielded the file.
	// It is the only error a List recovers from.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a name is registered twice in a
	// static provider.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidData reports a candidate of the wrong kind, for example a
	// directory where a file was expected.
	ErrInvalidData = errors.New("invalid data")
)

var log = commonlog.GetLogger("unfold.source")

// Source is something that may provide file content by its name.
type Source interface {
	// Read loads name. dir is the directory of the including file when the
	// directive used quotes, or "" when the lookup must ignore it.
	//
	// On success Read returns the canonical identifier of the file and its
	// full text.
	Read(name, dir string) (id string, text string, err error)
}

// Func adapts an ordinary function to the Source interface.
type Func func(name, dir string) (string, string, error)

func (f Func) Read(name, dir string) (string, string, error) {
	return f(name, dir)
}

// Dir returns the directory hint for files included with quotes from the
// file identified by id. Archive identifiers keep their "<archive>!" prefix
// so that the hint stays inside the archive.
func Dir(id string) string {
	if archive, entry, ok := splitArchiveID(id); ok {
		return archive + "!" + path.Dir(entry)
	}
	return filepath.Dir(id)
}

func splitArchiveID(id string) (archive, entry string, ok bool) {
	i := strings.LastIndex(id, "!")
	if i < 0 {
		return "", "", false
	}
	archive = id[:i]
	switch strings.ToLower(filepath.Ext(archive)) {
	case ".zip", ".jar":
		return archive, id[i+1:], true
	}
	return "", "", false
}

// Archive returns the archive path of an identifier produced by Zip.
func Archive(id string) (string, bool) {
	archive, _, ok := splitArchiveID(id)
	return archive, ok
}
