// Package liquid provides a server-side Liquid-family template engine
// for Go: a lexer/parser/evaluator pipeline over an immutable AST, an
// insertion-ordered, arbitrary-precision value system, and a filter and
// accessor registry for bridging host objects and data into templates.
//
// # Basic Usage
//
//	eng := liquid.New("./views")
//	out, err := eng.RenderString("product", map[string]interface{}{
//	    "title": "Widget",
//	    "price": 19.99,
//	})
//
// # Template Syntax
//
// Liquid templates use three constructs:
//
//   - {{ expression | filter: arg }} — escaped output
//   - {% tag arg %}...{% endtag %} — control flow and assignment
//   - {%- -%} / {{- -}} — whitespace-trimming delimiters
//
// See SPEC_FULL.md for the full tag, filter, and operator grammar.
package liquid

import (
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/codingersid/legit-liquid/accessor"
	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/engine"
	"github.com/codingersid/legit-liquid/filter"
)

// Engine is an alias for engine.Engine.
type Engine = engine.Engine

// Option is an alias for engine.Option.
type Option = engine.Option

// New creates a template engine rooted at viewsPath.
//
// Example:
//
//	eng := liquid.New("./views")
//	eng := liquid.New("./views", liquid.WithMaxRecursion(50))
func New(viewsPath string, opts ...Option) *Engine {
	return engine.New(viewsPath, opts...)
}

// WithLoader overrides the default file-system loader.
func WithLoader(l ast.Loader) Option { return engine.WithLoader(l) }

// WithDevelopment disables the compile cache so edits are picked up
// without restarting the process.
func WithDevelopment(dev bool) Option { return engine.WithDevelopment(dev) }

// WithCulture sets the culture used for number/date formatting.
func WithCulture(tag language.Tag) Option { return engine.WithCulture(tag) }

// WithMaxRecursion bounds nested include/render depth.
func WithMaxRecursion(n int) Option { return engine.WithMaxRecursion(n) }

// WithMaxSteps bounds the total number of evaluation steps per render.
func WithMaxSteps(n int) Option { return engine.WithMaxSteps(n) }

// WithNow overrides the clock the "now" filter/date defaults read from.
func WithNow(fn func() time.Time) Option { return engine.WithNow(fn) }

// WithTimezone sets the default timezone for date rendering.
func WithTimezone(loc *time.Location) Option { return engine.WithTimezone(loc) }

// WithFilters replaces the default filter registry.
func WithFilters(reg *filter.Registry) Option { return engine.WithFilters(reg) }

// WithAccessors replaces the default accessor registry.
func WithAccessors(reg *accessor.Registry) Option { return engine.WithAccessors(reg) }

// WithValueConverters appends host-to-value conversion hooks, consulted
// before the default type classification.
func WithValueConverters(cs ...accessor.ValueConverter) Option {
	return engine.WithValueConverters(cs...)
}

// WithLogger sets the structured logger for parse/cache diagnostics.
func WithLogger(l *zap.Logger) Option { return engine.WithLogger(l) }

// WithMemberAccessStrategy sets the member_access_strategy: "safe" (the
// default) permits only explicitly registered accessors; "unsafe" also
// allows any exported field or zero-arg method via reflection.
func WithMemberAccessStrategy(strategy engine.MemberAccessStrategy) Option {
	return engine.WithMemberAccessStrategy(strategy)
}

// WithGreedyParser toggles whether tag/output bodies may span newlines.
func WithGreedyParser(greedy bool) Option { return engine.WithGreedyParser(greedy) }

// WithTrimBlocks makes every tag delimiter behave as if it closed with
// '-%}' by default.
func WithTrimBlocks(trim bool) Option { return engine.WithTrimBlocks(trim) }

// WithTrimTags makes every tag delimiter behave as if it opened with
// '{%-' by default.
func WithTrimTags(trim bool) Option { return engine.WithTrimTags(trim) }

// Render is a convenience function that creates an engine and renders a
// single template.
func Render(w io.Writer, viewsPath, name string, data interface{}) error {
	return New(viewsPath).Render(w, name, data)
}

// RenderString is a convenience function that creates an engine and
// renders a single template to a string.
func RenderString(viewsPath, name string, data interface{}) (string, error) {
	return New(viewsPath).RenderString(name, data)
}

// Tags lists every tag this engine implements (spec.md §6).
var Tags = []string{
	"if", "elsif", "else", "endif",
	"unless", "endunless",
	"case", "when", "endcase",
	"for", "break", "continue", "endfor",
	"capture", "endcapture",
	"assign",
	"increment", "decrement",
	"cycle",
	"include", "render",
	"comment", "endcomment",
	"raw", "endraw",
}

// Filters lists every filter this engine implements: spec.md §6's set,
// plus the to_number/to_string/at_least/at_most/concat supplements noted
// in SPEC_FULL.md §10.
var Filters = []string{
	"abs", "append", "at_least", "at_most", "capitalize", "ceil",
	"compact", "concat", "date", "default", "divided_by", "downcase",
	"escape", "escape_once", "first", "floor", "join", "last",
	"lstrip", "map", "minus", "modulo", "newline_to_br", "plus",
	"prepend", "remove", "remove_first", "replace", "replace_first",
	"reverse", "round", "rstrip", "size", "slice", "sort",
	"sort_natural", "split", "strip", "strip_html", "strip_newlines",
	"times", "truncate", "truncatewords", "uniq", "upcase", "url_decode",
	"url_encode", "where", "to_number", "to_string",
}
