package engine

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"github.com/codingersid/legit-liquid/ast"
)

// CachedTemplate is a compiled, cached AST plus the metadata used to
// invalidate it against an unchanged-on-disk assumption (spec.md §6).
type CachedTemplate struct {
	Template *ast.Template
	ModTime  time.Time
	Checksum string
}

// TemplateCache guards the compiled-AST cache, adapted from the teacher's
// engine/cache.go. Entries are keyed by name and invalidated by content
// checksum only; the recorded ModTime is not consulted.
type TemplateCache struct {
	templates map[string]*CachedTemplate
	mu        sync.RWMutex
	disabled  bool
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{templates: make(map[string]*CachedTemplate)}
}

func (c *TemplateCache) Get(name string) (*CachedTemplate, bool) {
	if c.disabled {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.templates[name]
	return cached, ok
}

func (c *TemplateCache) Set(name string, tmpl *ast.Template, modTime time.Time, checksum string) {
	if c.disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[name] = &CachedTemplate{Template: tmpl, ModTime: modTime, Checksum: checksum}
}

func (c *TemplateCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.templates, name)
}

func (c *TemplateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = make(map[string]*CachedTemplate)
}

func (c *TemplateCache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

func (c *TemplateCache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = false
}

// IsValid reports whether a cached entry still matches checksum — the
// only validity check, which works the same for a Map-backed loader with
// no file system.
func (c *TemplateCache) IsValid(name, checksum string) bool {
	if c.disabled {
		return false
	}
	cached, ok := c.Get(name)
	if !ok {
		return false
	}
	return cached.Checksum == checksum
}

func Checksum(content []byte) string {
	hash := md5.Sum(content)
	return hex.EncodeToString(hash[:])
}

func (c *TemplateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

func (c *TemplateCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	return names
}
