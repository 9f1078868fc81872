package source

import (
	"errors"
	"fmt"
)

// List reads from a list of other sources in registration order.
// The first success wins. ErrNotFound moves on to the next member, any
// other error stops the lookup and is returned as is.
type List struct {
	sources []Source
}

func NewList(sources ...Source) *List {
	l := &List{}
	for _, s := range sources {
		l.Add(s)
	}
	return l
}

// Add appends s to the end of the chain. Nil sources are ignored.
func (l *List) Add(s Source) {
	if s == nil {
		return
	}
	l.sources = append(l.sources, s)
}

func (l *List) Len() int {
	return len(l.sources)
}

func (l *List) Read(name, dir string) (string, string, error) {
	for i, s := range l.sources {
		id, text, err := s.Read(name, dir)
		if err == nil {
			return id, text, nil
		}
		if errors.Is(err, ErrNotFound) {
			log.Debugf("source %d: %s not found, trying next", i, name)
			continue
		}
		return "", "", err
	}
	return "", "", fmt.Errorf("path: %s, dir: %q: %w", name, dir, ErrNotFound)
}
