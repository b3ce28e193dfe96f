// Package filter implements the named-filter registry and built-in filter
// set described in spec.md §4.G and enumerated in §6.
package filter

import (
	"time"

	"golang.org/x/text/language"

	"github.com/codingersid/legit-liquid/value"
)

// Context exposes the ambient render state a filter may read (culture,
// timezone, clock) without ever mutating scopes — spec.md §4.G: "Filters
// must be referentially transparent with respect to the template context."
type Context interface {
	Culture() language.Tag
	Timezone() *time.Location
	Now() time.Time
}

// Func is the shape of a registered filter: input value plus positional
// and named argument bundles (spec.md §4.G).
type Func func(input value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error)

// Registry holds named filters. Registration is last-writer-wins per
// name (spec.md §4.G).
type Registry struct {
	filters map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]Func)}
	registerBuiltins(r)
	return r
}

func (r *Registry) Register(name string, f Func) {
	r.filters[name] = f
}

// ErrMissingFilter is returned (wrapped) when a template invokes a name
// with no registered filter. spec.md §7: "Missing filters raise
// evaluation errors."
type ErrMissingFilter struct{ Name string }

func (e *ErrMissingFilter) Error() string { return "undefined filter: " + e.Name }

func (r *Registry) Invoke(name string, input value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
	f, ok := r.filters[name]
	if !ok {
		return value.Nil, &ErrMissingFilter{Name: name}
	}
	return f(input, args, named, ctx)
}
