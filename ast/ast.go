// Package ast defines the statement and expression node shapes produced by
// the parser and walked by the evaluator.
package ast

import (
	"golang.org/x/text/language"

	"github.com/codingersid/legit-liquid/value"
)

// Position locates a node in its source template, for error messages.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Signal is the completion result of rendering a statement. Break and
// Continue propagate up until a loop consumes them; Terminate halts the
// whole render. These are return values on purpose: control flow here is a
// hot path and must not pay for panics/recover.
type Signal int

const (
	Normal Signal = iota
	Break
	Continue
	Terminate
)

func (s Signal) String() string {
	switch s {
	case Normal:
		return "normal"
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// RenderContext is the minimal surface the ast package needs from the
// render context, kept here to avoid an import cycle between ast and
// render (render imports ast, not the other way around).
type RenderContext interface {
	// Write appends s to the output sink unescaped (raw text, pre-escaped
	// output, and the literal content inside a capture buffer).
	Write(s string) error
	// WriteEscaped appends s through the active encoder exactly once.
	WriteEscaped(s string) error

	Get(name string) value.Value
	Set(name string, v value.Value)

	PushScope()
	PopScope()

	PushLoop(length int) *LoopFrame
	PopLoop()
	CurrentLoop() *LoopFrame

	PushCapture()
	PopCapture() string

	Cancelled() bool
	StepOrAbort() error

	// Culture returns the active locale used for number/date formatting
	// (spec.md §6 options surface).
	Culture() language.Tag

	// RenderChild parses (with cache) and renders the named child
	// template. When isolate is true the child sees only vars plus the
	// model (spec.md §4.I "render isolates the parent scope"); otherwise
	// it shares the current scope stack ("include shares it").
	RenderChild(name string, vars map[string]value.Value, isolate bool) (string, error)

	// EnterInclude increments the include/render recursion depth and
	// checks it against max_recursion, returning a cleanup to call on
	// exit. spec.md §5/§9: guards cyclic includes.
	EnterInclude(name string) (func(), error)
}

// LoopFrame is the forloop object exposed inside a for block.
type LoopFrame struct {
	Index  int
	Length int
	Parent *LoopFrame
}

func (l *LoopFrame) Index0() int  { return l.Index }
func (l *LoopFrame) Index1() int  { return l.Index + 1 }
func (l *LoopFrame) RIndex0() int { return l.Length - l.Index - 1 }
func (l *LoopFrame) RIndex1() int { return l.Length - l.Index }
func (l *LoopFrame) First() bool  { return l.Index == 0 }
func (l *LoopFrame) Last() bool   { return l.Index == l.Length-1 }

// Loader resolves a logical template name to source text, per spec.md §6.
type Loader interface {
	Load(name string) (string, error)
	Resolve(name string, kind string) (string, error)
}

// Template is an immutable, parsed, shareable sequence of statements.
type Template struct {
	Name  string
	Nodes []Statement
}

// Statement is a node that writes to the output sink and may affect
// control flow.
type Statement interface {
	Pos() Position
	Render(ctx RenderContext) (Signal, error)
}

// Expression is a node that evaluates to a runtime value.
type Expression interface {
	Pos() Position
	Evaluate(ctx RenderContext) (value.Value, error)
}

// base embeds into every node to carry source position.
type base struct {
	position Position
}

func (b base) Pos() Position { return b.position }
