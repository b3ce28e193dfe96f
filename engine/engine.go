// Package engine is the compile-and-cache layer sitting above the
// parser/render packages: it owns template resolution via a loader,
// AST caching keyed by content checksum, and render-option assembly.
// Adapted from the teacher's engine.Engine, which did the equivalent
// job for compiled html/template trees.
package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/codingersid/legit-liquid/accessor"
	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/filter"
	"github.com/codingersid/legit-liquid/lexer"
	"github.com/codingersid/legit-liquid/loader"
	"github.com/codingersid/legit-liquid/parser"
	"github.com/codingersid/legit-liquid/render"
	"github.com/codingersid/legit-liquid/value"
)

// MemberAccessStrategy selects the accessor.Registry's reflection-
// fallback policy (spec.md §6): "safe" (the default) permits only
// explicitly registered accessors; "unsafe" allows any exported getter.
type MemberAccessStrategy string

const (
	MemberAccessSafe   MemberAccessStrategy = "safe"
	MemberAccessUnsafe MemberAccessStrategy = "unsafe"
)

// Engine is the main template engine: loader + compile cache + render
// options, implementing render.Source so a render.Context can resolve
// {% include %}/{% render %} targets back through the same cache.
type Engine struct {
	loader ast.Loader
	cache  *TemplateCache
	group  singleflight.Group
	shared map[string]interface{}
	mutex  sync.RWMutex
	logger *zap.Logger

	renderOpts render.Options
	lexerOpts  lexer.Options
}

// Option configures the engine, following the teacher's functional-options
// shape (engine.Option).
type Option func(*Engine)

// New creates an engine rooted at viewsPath, defaulting to the liquid
// file-system loader and render.DefaultOptions().
func New(viewsPath string, opts ...Option) *Engine {
	e := &Engine{
		loader:     loader.NewFileSystem(viewsPath),
		cache:      NewTemplateCache(),
		shared:     make(map[string]interface{}),
		logger:     zap.NewNop(),
		renderOpts: render.DefaultOptions(),
		lexerOpts:  lexer.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.renderOpts.Logger = e.logger
	e.renderOpts.Accessors.SetMemberAccessUnsafe(e.renderOpts.MemberAccessUnsafe)
	return e
}

func WithLoader(l ast.Loader) Option {
	return func(e *Engine) { e.loader = l }
}

func WithDevelopment(dev bool) Option {
	return func(e *Engine) {
		if dev {
			e.cache.Disable()
		}
	}
}

func WithCulture(tag language.Tag) Option {
	return func(e *Engine) { e.renderOpts.Culture = tag }
}

func WithMaxRecursion(n int) Option {
	return func(e *Engine) { e.renderOpts.MaxRecursion = n }
}

func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.renderOpts.MaxSteps = n }
}

func WithNow(fn func() time.Time) Option {
	return func(e *Engine) { e.renderOpts.Now = fn }
}

func WithTimezone(loc *time.Location) Option {
	return func(e *Engine) { e.renderOpts.Timezone = loc }
}

func WithFilters(reg *filter.Registry) Option {
	return func(e *Engine) { e.renderOpts.Filters = reg }
}

func WithAccessors(reg *accessor.Registry) Option {
	return func(e *Engine) { e.renderOpts.Accessors = reg }
}

func WithValueConverters(cs ...accessor.ValueConverter) Option {
	return func(e *Engine) { e.renderOpts.ValueConverters = append(e.renderOpts.ValueConverters, cs...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMemberAccessStrategy sets the accessor registry's reflection-
// fallback policy (spec.md §6's member_access_strategy, default "safe").
func WithMemberAccessStrategy(strategy MemberAccessStrategy) Option {
	return func(e *Engine) { e.renderOpts.MemberAccessUnsafe = strategy == MemberAccessUnsafe }
}

// WithGreedyParser toggles whether tag/output bodies may span newlines
// (spec.md §6's greedy_parser, default true).
func WithGreedyParser(greedy bool) Option {
	return func(e *Engine) { e.lexerOpts.GreedyParser = greedy }
}

// WithTrimBlocks makes every tag delimiter behave as if it closed with
// '-%}' by default (spec.md §6's trim_blocks, default false).
func WithTrimBlocks(trim bool) Option {
	return func(e *Engine) { e.lexerOpts.TrimBlocks = trim }
}

// WithTrimTags makes every tag delimiter behave as if it opened with
// '{%-' by default (spec.md §6's trim_tags, default false).
func WithTrimTags(trim bool) Option {
	return func(e *Engine) { e.lexerOpts.TrimTags = trim }
}

// AddFilter registers a custom filter, mirroring the teacher's
// AddFunction/AddDirective extension points.
func (e *Engine) AddFilter(name string, fn filter.Func) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.renderOpts.Filters.Register(name, fn)
}

// Share adds data to every render call (the teacher's runtime.SharedData
// concern), merged under the model before per-call data so per-call data
// always wins. Shared data is merged only when the per-call data is nil
// or a map; any other data value becomes the model alone, without it.
func (e *Engine) Share(key string, value interface{}) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.shared[key] = value
}

// Loader exposes the engine's loader, satisfying render.Source.
func (e *Engine) Loader() ast.Loader { return e.loader }

// Parse resolves, compiles (deduping concurrent compiles of the same
// name via singleflight), and caches name's AST, re-parsing only when
// the source checksum changes.
func (e *Engine) Parse(name string) (*ast.Template, error) {
	src, err := e.loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("engine: loading %q: %w", name, err)
	}
	checksum := Checksum([]byte(src))

	if cached, ok := e.cache.Get(name); ok && e.cache.IsValid(name, checksum) {
		return cached.Template, nil
	}

	tmplAny, err, _ := e.group.Do(name, func() (interface{}, error) {
		e.logger.Debug("compiling template", zap.String("name", name))
		return parser.ParseWithOptions(name, src, e.lexerOpts)
	})
	if err != nil {
		return nil, fmt.Errorf("engine: parsing %q: %w", name, err)
	}
	tmpl := tmplAny.(*ast.Template)
	e.cache.Set(name, tmpl, time.Now(), checksum)
	return tmpl, nil
}

// Render renders a named template to w.
func (e *Engine) Render(w io.Writer, name string, data interface{}) error {
	out, err := e.RenderString(name, data)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(out))
	return err
}

// RenderString renders a named template and returns the result.
func (e *Engine) RenderString(name string, data interface{}) (string, error) {
	tmpl, err := e.Parse(name)
	if err != nil {
		return "", err
	}
	return e.renderTemplate(tmpl, data)
}

// RenderTemplate renders a template string directly, without going
// through the loader or cache.
func (e *Engine) RenderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := parser.ParseWithOptions("inline", templateStr, e.lexerOpts)
	if err != nil {
		return "", fmt.Errorf("engine: parsing inline template: %w", err)
	}
	return e.renderTemplate(tmpl, data)
}

func (e *Engine) renderTemplate(tmpl *ast.Template, data interface{}) (string, error) {
	model := e.buildModel(data)
	ctx := render.New(e.renderOpts, e, model)
	if _, err := ast.Block(tmpl.Nodes).Render(ctx); err != nil {
		return "", err
	}
	return ctx.String(), nil
}

// buildModel merges shared data under per-call map data (per-call always
// wins) and converts the result to a value.Value via the accessor
// chain, so templates see plain Go maps/structs uniformly. Non-map data
// is converted on its own and shared data is not added to it.
func (e *Engine) buildModel(data interface{}) value.Value {
	e.mutex.RLock()
	merged := make(map[string]interface{}, len(e.shared))
	for k, v := range e.shared {
		merged[k] = v
	}
	e.mutex.RUnlock()

	switch d := data.(type) {
	case map[string]interface{}:
		for k, v := range d {
			merged[k] = v
		}
	case map[string]string:
		for k, v := range d {
			merged[k] = v
		}
	case nil:
	default:
		return accessor.FromHost(data, e.renderOpts.Accessors, e.renderOpts.ValueConverters...)
	}
	return accessor.FromHost(merged, e.renderOpts.Accessors, e.renderOpts.ValueConverters...)
}

// ClearCache clears the compiled-AST cache.
func (e *Engine) ClearCache() { e.cache.Clear() }
