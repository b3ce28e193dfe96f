// Package loader provides the concrete ast.Loader implementations the
// engine delegates child-template resolution to (spec.md §6): an
// in-memory map for tests and embedding, and a file-system walker
// adapted from the teacher's Fiber view-engine adapter.
package loader

import (
	"fmt"
	"sync"
)

// Map is a fixed, in-memory loader backed by a plain map, useful for
// tests and for embedding templates compiled into the binary.
type Map struct {
	mu    sync.RWMutex
	files map[string]string
}

func NewMap(files map[string]string) *Map {
	m := &Map{files: make(map[string]string, len(files))}
	for k, v := range files {
		m.files[k] = v
	}
	return m
}

func (m *Map) Load(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.files[name]
	if !ok {
		return "", fmt.Errorf("loader: template %q not found", name)
	}
	return src, nil
}

func (m *Map) Resolve(name string, kind string) (string, error) {
	if _, err := m.Load(name); err != nil {
		return "", err
	}
	return name, nil
}

// Set registers or replaces a template's source, for tests that build
// up a fixture incrementally.
func (m *Map) Set(name, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = source
}
