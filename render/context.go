// Package render implements the template context (spec.md §4.H) and the
// evaluator's supporting machinery (spec.md §4.I, §5): scope stack, loop
// frames, capture buffers, guard counters, and child-template rendering
// via a TemplateLoader.
package render

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/codingersid/legit-liquid/accessor"
	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/filter"
	"github.com/codingersid/legit-liquid/value"
)

// Source resolves and renders named child templates, implemented by the
// root engine. Kept as an interface here so render does not import
// engine (engine imports render).
type Source interface {
	// Parse returns the cached or freshly-parsed AST for name.
	Parse(name string) (*ast.Template, error)
	Loader() ast.Loader
}

// Options configures a render, mirroring spec.md §6's options surface.
type Options struct {
	Culture            language.Tag
	Timezone           *time.Location
	Now                func() time.Time
	MaxRecursion       int
	MaxSteps           int
	MaxLoopIterations  int
	MemberAccessUnsafe bool
	Filters            *filter.Registry
	Accessors          *accessor.Registry
	ValueConverters    []accessor.ValueConverter
	Logger             *zap.Logger
}

// DefaultOptions returns the engine defaults: safe member access, HTML
// encoding, no recursion/step caps beyond sane sandboxing defaults.
func DefaultOptions() Options {
	return Options{
		Culture:           language.Und,
		Timezone:          time.UTC,
		Now:               time.Now,
		MaxRecursion:      100,
		MaxSteps:          1_000_000,
		MaxLoopIterations: 0, // not read by the evaluator: loops are bounded only by MaxSteps
		Filters:           filter.NewRegistry(),
		Accessors:         accessor.New(nil),
		Logger:            zap.NewNop(),
	}
}

// Context is a single render's mutable state. Created at render start,
// discarded at the end; never shared across concurrent renders
// (spec.md §3, §5).
type Context struct {
	opts    Options
	source  Source
	encoder Encoder
	group   singleflight.Group

	scopes []map[string]value.Value
	model  value.Value

	loopStack []*ast.LoopFrame

	captures []*strings.Builder
	out      *strings.Builder

	steps        int64
	cancelled    atomic.Bool
	includeChain []string
}

// New creates a render context. model is the opaque root object exposed
// for unresolved top-level names (spec.md §3's "Model").
func New(opts Options, source Source, model value.Value) *Context {
	c := &Context{
		opts:    opts,
		source:  source,
		encoder: HTMLEncoder,
		scopes:  []map[string]value.Value{{}},
		model:   model,
	}
	c.out = &strings.Builder{}
	return c
}

func (c *Context) WithEncoder(e Encoder) *Context { c.encoder = e; return c }

// Cancel requests termination; checked at statement boundaries and loop
// iterations (spec.md §5).
func (c *Context) Cancel() { c.cancelled.Store(true) }

func (c *Context) Cancelled() bool { return c.cancelled.Load() }

func (c *Context) Culture() language.Tag { return c.opts.Culture }
func (c *Context) Timezone() *time.Location {
	if c.opts.Timezone == nil {
		return time.UTC
	}
	return c.opts.Timezone
}
func (c *Context) Now() time.Time {
	if c.opts.Now != nil {
		return c.opts.Now()
	}
	return time.Now()
}

// StepOrAbort increments the per-render step counter, surfacing
// ErrStepLimit once MaxSteps is exceeded (spec.md §5 "maximum steps per
// render"), and ErrCancelled once Cancel has been called.
func (c *Context) StepOrAbort() error {
	if c.Cancelled() {
		return &ast.EvalError{Message: ErrCancelled.Error(), Cause: ErrCancelled}
	}
	if c.opts.MaxSteps <= 0 {
		return nil
	}
	if atomic.AddInt64(&c.steps, 1) > int64(c.opts.MaxSteps) {
		c.cancelled.Store(true)
		return &ast.EvalError{Message: ErrStepLimit.Error(), Cause: ErrStepLimit}
	}
	return nil
}

// Write appends s to the active output sink (the innermost capture
// buffer, or the render's final buffer) verbatim.
func (c *Context) Write(s string) error {
	c.sink().WriteString(s)
	return nil
}

// WriteEscaped appends s through the active encoder exactly once
// (spec.md §8 "Encoder respect").
func (c *Context) WriteEscaped(s string) error {
	c.sink().WriteString(c.encoder.Encode(s))
	return nil
}

func (c *Context) sink() *strings.Builder {
	if len(c.captures) > 0 {
		return c.captures[len(c.captures)-1]
	}
	return c.out
}

// String returns everything written to the render's top-level sink.
func (c *Context) String() string { return c.out.String() }

// PushScope/PopScope implement the LIFO scope stack from spec.md §3;
// writes target the innermost scope, reads search outward.
func (c *Context) PushScope() {
	c.scopes = append(c.scopes, map[string]value.Value{})
}

func (c *Context) PopScope() {
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// Depth reports the current scope stack depth, for the scope-balance
// property in spec.md §8.
func (c *Context) Depth() int { return len(c.scopes) }

func (c *Context) Get(name string) value.Value {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v
		}
	}
	if !c.model.IsNil() {
		return c.model.GetMember(name)
	}
	return value.Nil
}

func (c *Context) Set(name string, v value.Value) {
	c.scopes[len(c.scopes)-1][name] = v
}

func (c *Context) PushLoop(length int) *ast.LoopFrame {
	var parent *ast.LoopFrame
	if len(c.loopStack) > 0 {
		parent = c.loopStack[len(c.loopStack)-1]
	}
	frame := &ast.LoopFrame{Length: length, Parent: parent}
	c.loopStack = append(c.loopStack, frame)
	return frame
}

func (c *Context) PopLoop() {
	if len(c.loopStack) > 0 {
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
	}
}

func (c *Context) CurrentLoop() *ast.LoopFrame {
	if len(c.loopStack) == 0 {
		return nil
	}
	return c.loopStack[len(c.loopStack)-1]
}

func (c *Context) PushCapture() {
	c.captures = append(c.captures, &strings.Builder{})
}

func (c *Context) PopCapture() string {
	if len(c.captures) == 0 {
		return ""
	}
	b := c.captures[len(c.captures)-1]
	c.captures = c.captures[:len(c.captures)-1]
	return b.String()
}

// EnterInclude implements the per-context include-depth counter and
// visited-set cyclic-include guard from spec.md §9.
func (c *Context) EnterInclude(name string) (func(), error) {
	if len(c.includeChain) >= c.opts.MaxRecursion {
		return func() {}, &ast.EvalError{Message: ErrRecursionLimit.Error(), Cause: ErrRecursionLimit, Template: name}
	}
	for _, n := range c.includeChain {
		if n == name {
			return func() {}, &ast.EvalError{Message: ErrCyclicInclude.Error(), Cause: ErrCyclicInclude, Template: name}
		}
	}
	c.includeChain = append(c.includeChain, name)
	return func() {
		c.includeChain = c.includeChain[:len(c.includeChain)-1]
	}, nil
}

// RenderChild parses (deduping concurrent compiles of the same name via
// singleflight, spec.md §5's "shared resources" concern applied to the
// cache) and renders a child template. include shares the current scope
// stack; render isolates it, seeing only vars and the model.
func (c *Context) RenderChild(name string, vars map[string]value.Value, isolate bool) (string, error) {
	tmplAny, err, _ := c.group.Do(name, func() (interface{}, error) {
		return c.source.Parse(name)
	})
	if err != nil {
		return "", &ast.EvalError{Message: ErrLoaderFailed.Error(), Cause: fmt.Errorf("%w: %w", ErrLoaderFailed, err), Template: name}
	}
	tmpl := tmplAny.(*ast.Template)

	if isolate {
		child := New(c.opts, c.source, c.model)
		child.encoder = c.encoder
		child.includeChain = append([]string(nil), c.includeChain...)
		for k, v := range vars {
			child.Set(k, v)
		}
		if _, err := ast.Block(tmpl.Nodes).Render(child); err != nil {
			return "", err
		}
		return child.String(), nil
	}

	for k, v := range vars {
		c.Set(k, v)
	}
	c.PushCapture()
	_, err = ast.Block(tmpl.Nodes).Render(c)
	captured := c.PopCapture()
	if err != nil {
		return "", err
	}
	return captured, nil
}

// InvokeFilter implements ast.FilterInvoker, bridging the expression
// evaluator to the filter registry.
func (c *Context) InvokeFilter(name string, input value.Value, args []value.Value, named map[string]value.Value, _ interface{}) (value.Value, error) {
	v, err := c.opts.Filters.Invoke(name, input, args, named, c)
	if err != nil {
		return value.Nil, &ast.EvalError{Message: err.Error(), Cause: err}
	}
	return v, nil
}

// Accessor exposes the accessor registry for value.FromHost-style
// conversion when constructing the model/vars from host data.
func (c *Context) Accessor() *accessor.Registry { return c.opts.Accessors }
