package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Mem serves files registered in memory. Names are cleaned before they are
// stored, and the cleaned name is the canonical identifier.
type Mem struct {
	mu    sync.RWMutex
	files map[string]string
}

func NewMem() *Mem {
	return &Mem{files: make(map[string]string)}
}

// Add registers a file. Registering the same name twice fails with
// ErrAlreadyExists.
func (m *Mem) Add(name, text string) error {
	key := filepath.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrAlreadyExists)
	}
	m.files[key] = text
	return nil
}

// MustAdd is like Add but panics on error. Intended for fixtures.
func (m *Mem) MustAdd(name, text string) *Mem {
	if err := m.Add(name, text); err != nil {
		panic(err)
	}
	return m
}

// Names returns the registered canonical names in sorted order.
func (m *Mem) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Mem) lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.files[key]
	return text, ok
}

func (m *Mem) Read(name, dir string) (string, string, error) {
	if dir != "" {
		key := filepath.Join(dir, name)
		if text, ok := m.lookup(key); ok {
			return key, text, nil
		}
	}
	key := filepath.Clean(name)
	if text, ok := m.lookup(key); ok {
		return key, text, nil
	}
	return "", "", fmt.Errorf("path: %s, dir: %q: %w", name, dir, ErrNotFound)
}
