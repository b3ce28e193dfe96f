// Package accessor implements the bridge from host objects to the value
// system (spec.md §4.F) and the process-wide type→strategy cache
// (spec.md §4.E, §9) using a copy-on-write atomic pointer so reads never
// block on writes.
package accessor

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/spf13/cast"

	"github.com/codingersid/legit-liquid/value"
)

// Getter resolves one named member off a host object of a given type.
// Getters must never panic; a missing member returns (Nil, false).
type Getter func(obj interface{}) (value.Value, bool)

// Registry is a layered accessor registry: Resolve consults this registry
// then falls back to the parent registry it was built from (the template
// context registry overrides the options registry, per spec.md §4.F).
type Registry struct {
	mu      sync.RWMutex
	getters map[reflect.Type]map[string]Getter
	parent  *Registry
	cache   atomic.Pointer[map[cacheKey]Getter]
	unsafe  atomic.Bool
}

type cacheKey struct {
	t    reflect.Type
	name string
}

// New creates an empty accessor registry, optionally layered on top of a
// parent (e.g. the options-level registry).
func New(parent *Registry) *Registry {
	r := &Registry{
		getters: make(map[reflect.Type]map[string]Getter),
		parent:  parent,
	}
	empty := map[cacheKey]Getter{}
	r.cache.Store(&empty)
	return r
}

// Register adds a getter for (type, member name). Last writer wins.
func (r *Registry) Register(t reflect.Type, member string, g Getter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getters[t] == nil {
		r.getters[t] = make(map[string]Getter)
	}
	r.getters[t][member] = g
	r.invalidate(t, member)
}

func (r *Registry) invalidate(t reflect.Type, member string) {
	old := *r.cache.Load()
	fresh := make(map[cacheKey]Getter, len(old))
	for k, v := range old {
		if k.t == t && k.name == member {
			continue
		}
		fresh[k] = v
	}
	r.cache.Store(&fresh)
}

// SetMemberAccessUnsafe toggles the member_access_strategy (spec.md §6):
// "unsafe" permits the reflection fallback below for any type that has
// no explicitly registered accessor; "safe" (the default) restricts
// member access to explicitly registered getters only. The setting
// applies to this registry and, via Resolve's parent walk, to every
// registry layered underneath it.
func (r *Registry) SetMemberAccessUnsafe(unsafe bool) {
	r.unsafe.Store(unsafe)
	empty := map[cacheKey]Getter{}
	r.cache.Store(&empty)
}

func (r *Registry) memberAccessUnsafe() bool {
	if r.unsafe.Load() {
		return true
	}
	if r.parent != nil {
		return r.parent.memberAccessUnsafe()
	}
	return false
}

// Resolve returns a getter for (type, name), consulting the cache, then
// the local table, then the parent registry, then — only when
// member_access_strategy is "unsafe" — a reflection-based fallback for
// exported struct fields/methods.
func (r *Registry) Resolve(t reflect.Type, name string) (Getter, bool) {
	key := cacheKey{t, name}
	if g, ok := (*r.cache.Load())[key]; ok {
		return g, g != nil
	}

	g, ok := r.lookupDirect(t, name)
	if !ok && r.parent != nil {
		g, ok = r.parent.Resolve(t, name)
	}
	if !ok && r.memberAccessUnsafe() {
		g, ok = reflectGetter(t, name)
	}

	r.mu.Lock()
	old := *r.cache.Load()
	fresh := make(map[cacheKey]Getter, len(old)+1)
	for k, v := range old {
		fresh[k] = v
	}
	if ok {
		fresh[key] = g
	} else {
		fresh[key] = nil
	}
	r.cache.Store(&fresh)
	r.mu.Unlock()

	return g, ok
}

func (r *Registry) lookupDirect(t reflect.Type, name string) (Getter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.getters[t]
	if !ok {
		return nil, false
	}
	g, ok := m[name]
	return g, ok
}

// reflectGetter implements the "unsafe" member_access_strategy (spec.md
// §6): any exported field or zero-arg method on the concrete type.
func reflectGetter(t reflect.Type, name string) (Getter, bool) {
	rt := t
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, false
	}
	if _, ok := rt.FieldByName(name); ok {
		return func(obj interface{}) (value.Value, bool) {
			rv := reflect.ValueOf(obj)
			for rv.Kind() == reflect.Ptr {
				if rv.IsNil() {
					return value.Nil, true
				}
				rv = rv.Elem()
			}
			fv := rv.FieldByName(name)
			if !fv.IsValid() || !fv.CanInterface() {
				return value.Nil, true
			}
			return FromHost(fv.Interface(), nil), true
		}, true
	}
	if _, ok := t.MethodByName(name); ok {
		return func(obj interface{}) (value.Value, bool) {
			rv := reflect.ValueOf(obj)
			m := rv.MethodByName(name)
			if !m.IsValid() || m.Type().NumIn() != 0 {
				return value.Nil, true
			}
			out := m.Call(nil)
			if len(out) == 0 {
				return value.Nil, true
			}
			return FromHost(out[0].Interface(), nil), true
		}, true
	}
	return nil, false
}

// GetMember/GetIndex/Iterate implement value.Accessor for use inside
// value.Object, delegating to Resolve for member access.
type ValueAccessor struct {
	Registry *Registry
}

func (a *ValueAccessor) GetMember(obj interface{}, name string) (value.Value, bool) {
	if obj == nil || a.Registry == nil {
		return value.Nil, true
	}
	t := reflect.TypeOf(obj)
	g, ok := a.Registry.Resolve(t, name)
	if !ok {
		return value.Nil, true
	}
	return g(obj)
}

func (a *ValueAccessor) GetIndex(obj interface{}, idx value.Value) (value.Value, bool) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		i := int(idx.ToInt64())
		if i < 0 || i >= rv.Len() {
			return value.Nil, true
		}
		return FromHost(rv.Index(i).Interface(), a.Registry), true
	}
	return a.GetMember(obj, idx.ToString())
}

func (a *ValueAccessor) Iterate(obj interface{}) ([]value.Value, bool) {
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = FromHost(rv.Index(i).Interface(), a.Registry)
		}
		return out, true
	case reflect.Map:
		out := make([]value.Value, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := cast.ToString(iter.Key().Interface())
			out = append(out, value.Array([]value.Value{value.String(k), FromHost(iter.Value().Interface(), a.Registry)}))
		}
		return out, true
	}
	return nil, false
}
