package loader

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSystem resolves template names against a root directory using an
// ordered list of location format strings, adapted from the teacher's
// Fiber view-engine directory/extension scheme (fiber/adapter.go):
// the first format string that yields an existing file wins.
type FileSystem struct {
	Root      string
	Locations []string
}

// NewFileSystem builds a FileSystem loader rooted at dir, using the
// default location list ("%s.liquid", "partials/%s.liquid") unless
// locations are supplied.
func NewFileSystem(dir string, locations ...string) *FileSystem {
	if len(locations) == 0 {
		locations = []string{"%s.liquid", "partials/%s.liquid"}
	}
	return &FileSystem{Root: dir, Locations: locations}
}

func (f *FileSystem) Resolve(name string, kind string) (string, error) {
	for _, loc := range f.Locations {
		candidate := filepath.Join(f.Root, fmt.Sprintf(loc, name))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: template %q not found under %s", name, f.Root)
}

func (f *FileSystem) Load(name string) (string, error) {
	path, err := f.Resolve(name, "")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loader: reading %q: %w", path, err)
	}
	return string(data), nil
}
