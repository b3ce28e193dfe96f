// Package fiber adapts the engine to a Fiber-style view renderer (a
// Render(w, name, data, layouts...) method with layout composition; it
// has no Load or Templates method), kept dependency-free so it works
// with any router via HTTPHandler. Adapted
// from the teacher's fiber/adapter.go, which did the equivalent job for
// the Blade-derived engine.
package fiber

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/codingersid/legit-liquid/engine"
)

// Engine wraps engine.Engine with layout support and an HTTP handler
// helper, providing the Render(w, name, data, layouts...) method of a
// Views implementation; it has no Load method.
type Engine struct {
	*engine.Engine
	layout     string
	layoutFunc func() string
	reload     bool
	debug      bool
	mutex      sync.RWMutex
}

// New creates a Fiber-compatible engine rooted at directory.
func New(directory string, opts ...engine.Option) *Engine {
	return &Engine{Engine: engine.New(directory, opts...)}
}

// Layout sets the default layout template.
func (e *Engine) Layout(layout string) *Engine {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.layout = layout
	return e
}

// LayoutFunc sets a function that returns the layout template name per
// request, for frameworks that vary layout by route.
func (e *Engine) LayoutFunc(fn func() string) *Engine {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.layoutFunc = fn
	return e
}

// Reload enables cache-busting on every render, for development.
func (e *Engine) Reload(reload bool) *Engine {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.reload = reload
	if reload {
		e.ClearCache()
	}
	return e
}

// Debug makes HTTPHandler include the template name and error text in
// its 500 response instead of a generic message.
func (e *Engine) Debug(debug bool) *Engine {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.debug = debug
	return e
}

// Render renders name, wrapping it in a layout when one is configured
// (the teacher's content/layout composition: the rendered body is
// exposed to the layout template as "content").
func (e *Engine) Render(w io.Writer, name string, data interface{}, layouts ...string) error {
	if e.reload {
		e.ClearCache()
	}

	binding := prepareBinding(data)
	layout := e.getLayout(layouts...)

	if layout == "" {
		return e.Engine.Render(w, name, binding)
	}

	content, err := e.Engine.RenderString(name, binding)
	if err != nil {
		return err
	}
	binding["content"] = content
	return e.Engine.Render(w, layout, binding)
}

func prepareBinding(data interface{}) map[string]interface{} {
	switch d := data.(type) {
	case nil:
		return make(map[string]interface{})
	case map[string]interface{}:
		return d
	case map[string]string:
		result := make(map[string]interface{}, len(d))
		for k, v := range d {
			result[k] = v
		}
		return result
	default:
		return map[string]interface{}{"data": data}
	}
}

func (e *Engine) getLayout(layouts ...string) string {
	if len(layouts) > 0 && layouts[0] != "" {
		return layouts[0]
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	if e.layoutFunc != nil {
		return e.layoutFunc()
	}
	return e.layout
}

// HTTPHandler returns a stdlib http.Handler that renders name on every
// request, for frameworks with no native Views abstraction.
func (e *Engine) HTTPHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := e.Render(w, name, nil); err != nil {
			if e.debug {
				http.Error(w, fmt.Sprintf("template %s: %v", name, err), http.StatusInternalServerError)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	})
}
