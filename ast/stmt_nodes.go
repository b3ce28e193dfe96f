package ast

import "github.com/codingersid/legit-liquid/value"

// RawText is a verbatim byte range from the source template, written
// without escaping (spec.md §3).
type RawText struct {
	base
	Text string
}

func NewRawText(p Position, text string) *RawText { return &RawText{base{p}, text} }

func (n *RawText) Render(ctx RenderContext) (Signal, error) {
	return Normal, ctx.Write(n.Text)
}

// Output is `{{ expr }}`: its textual result is encoder-escaped unless
// the value is a pre-escaped string (spec.md §4.I).
type Output struct {
	base
	Expr Expression
}

func NewOutput(p Position, expr Expression) *Output { return &Output{base{p}, expr} }

func (n *Output) Render(ctx RenderContext) (Signal, error) {
	v, err := n.Expr.Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	s := formatOutput(v, ctx.Culture())
	if value.IsSafe(v) {
		return Normal, ctx.Write(s)
	}
	return Normal, ctx.WriteEscaped(s)
}

// Block renders a sequence of statements in order, stopping early on any
// non-Normal completion signal (spec.md §4.D/§4.I).
type Block []Statement

func (b Block) Render(ctx RenderContext) (Signal, error) {
	for _, stmt := range b {
		if err := ctx.StepOrAbort(); err != nil {
			return Terminate, err
		}
		if ctx.Cancelled() {
			return Terminate, &EvalError{Message: "render cancelled"}
		}
		sig, err := stmt.Render(ctx)
		if err != nil || sig != Normal {
			return sig, err
		}
	}
	return Normal, nil
}

// IfBranch is one guard/body pair of an if/unless/elsif chain.
type IfBranch struct {
	Guard Expression // nil for a trailing else
	Body  Block
}

// IfStmt implements if/elsif/else. unless is parsed as an IfStmt whose
// first guard is wrapped in a logical negation by the parser.
type IfStmt struct {
	base
	Branches []IfBranch
}

func NewIfStmt(p Position, branches []IfBranch) *IfStmt { return &IfStmt{base{p}, branches} }

func (n *IfStmt) Render(ctx RenderContext) (Signal, error) {
	for _, br := range n.Branches {
		if br.Guard == nil {
			return br.Body.Render(ctx)
		}
		v, err := br.Guard.Evaluate(ctx)
		if err != nil {
			return Normal, err
		}
		if v.ToBool() {
			return br.Body.Render(ctx)
		}
	}
	return Normal, nil
}

// CaseWhen is one `{% when %}` clause: matches if the case subject equals
// any of Values.
type CaseWhen struct {
	Values []Expression
	Body   Block
}

// CaseStmt implements case/when/else.
type CaseStmt struct {
	base
	Subject Expression
	Whens   []CaseWhen
	Else    Block
}

func NewCaseStmt(p Position, subject Expression, whens []CaseWhen, els Block) *CaseStmt {
	return &CaseStmt{base{p}, subject, whens, els}
}

func (n *CaseStmt) Render(ctx RenderContext) (Signal, error) {
	subj, err := n.Subject.Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	for _, w := range n.Whens {
		for _, ve := range w.Values {
			v, err := ve.Evaluate(ctx)
			if err != nil {
				return Normal, err
			}
			if subj.Equals(v) {
				return w.Body.Render(ctx)
			}
		}
	}
	if n.Else != nil {
		return n.Else.Render(ctx)
	}
	return Normal, nil
}

// ForStmt implements `{% for x in source limit: offset: reversed %}`.
type ForStmt struct {
	base
	Var      string
	Source   Expression
	Limit    Expression
	Offset   Expression
	Reversed bool
	Body     Block
	Else     Block // {% else %} body rendered when the source is empty
}

func NewForStmt(p Position, v string, source, limit, offset Expression, reversed bool, body, els Block) *ForStmt {
	return &ForStmt{base{p}, v, source, limit, offset, reversed, body, els}
}

func (n *ForStmt) Render(ctx RenderContext) (Signal, error) {
	src, err := n.Source.Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	items := src.AsArray()

	offset := 0
	if n.Offset != nil {
		ov, err := n.Offset.Evaluate(ctx)
		if err != nil {
			return Normal, err
		}
		offset = int(ov.ToInt64())
	}
	limit := len(items) - offset
	if n.Limit != nil {
		lv, err := n.Limit.Evaluate(ctx)
		if err != nil {
			return Normal, err
		}
		if l := int(lv.ToInt64()); l < limit {
			limit = l
		}
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	if limit < 0 {
		limit = 0
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	items = items[offset:end]

	if len(items) == 0 {
		if n.Else != nil {
			return n.Else.Render(ctx)
		}
		return Normal, nil
	}

	if n.Reversed {
		rev := make([]value.Value, len(items))
		for i, v := range items {
			rev[len(items)-1-i] = v
		}
		items = rev
	}

	loop := ctx.PushLoop(len(items))
	defer ctx.PopLoop()

	ctx.PushScope()
	defer ctx.PopScope()

	for i, item := range items {
		loop.Index = i
		ctx.Set(n.Var, item)
		ctx.Set("forloop", forloopValue(loop))

		sig, err := n.Body.Render(ctx)
		if err != nil {
			return Normal, err
		}
		if sig == Break {
			break
		}
		if sig == Terminate {
			return Terminate, nil
		}
		// Continue and Normal both proceed to the next iteration.
	}
	return Normal, nil
}

func forloopValue(l *LoopFrame) value.Value {
	m := map[string]value.Value{
		"index":   value.NumberFromInt(int64(l.Index1())),
		"index0":  value.NumberFromInt(int64(l.Index0())),
		"rindex":  value.NumberFromInt(int64(l.RIndex1())),
		"rindex0": value.NumberFromInt(int64(l.RIndex0())),
		"first":   value.Bool(l.First()),
		"last":    value.Bool(l.Last()),
		"length":  value.NumberFromInt(int64(l.Length)),
	}
	if l.Parent != nil {
		m["parentloop"] = forloopValue(l.Parent)
	} else {
		m["parentloop"] = value.Nil
	}
	return value.DictFromGoMap(m)
}

// BreakStmt/ContinueStmt propagate their completion signal up to the
// nearest enclosing loop (spec.md §4.D).
type BreakStmt struct{ base }
type ContinueStmt struct{ base }

func NewBreakStmt(p Position) *BreakStmt       { return &BreakStmt{base{p}} }
func NewContinueStmt(p Position) *ContinueStmt { return &ContinueStmt{base{p}} }

func (n *BreakStmt) Render(ctx RenderContext) (Signal, error)    { return Break, nil }
func (n *ContinueStmt) Render(ctx RenderContext) (Signal, error) { return Continue, nil }

// AssignStmt implements `{% assign name = expr %}`.
type AssignStmt struct {
	base
	Name string
	Expr Expression
}

func NewAssignStmt(p Position, name string, expr Expression) *AssignStmt {
	return &AssignStmt{base{p}, name, expr}
}

func (n *AssignStmt) Render(ctx RenderContext) (Signal, error) {
	v, err := n.Expr.Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	ctx.Set(n.Name, v)
	return Normal, nil
}

// CaptureStmt implements `{% capture name %}...{% endcapture %}`: redirect
// output to a buffer, bind its string to Name on completion.
type CaptureStmt struct {
	base
	Name string
	Body Block
}

func NewCaptureStmt(p Position, name string, body Block) *CaptureStmt {
	return &CaptureStmt{base{p}, name, body}
}

func (n *CaptureStmt) Render(ctx RenderContext) (Signal, error) {
	ctx.PushCapture()
	sig, err := n.Body.Render(ctx)
	captured := ctx.PopCapture()
	if err != nil {
		return Normal, err
	}
	ctx.Set(n.Name, value.String(captured))
	return sig, nil
}

// IncrementStmt/DecrementStmt implement Liquid's counter tags: each names
// a variable in a counter namespace separate from the scope stack, always
// starting at 0 and mutating in place regardless of assign.
type IncrementStmt struct {
	base
	Name string
}
type DecrementStmt struct {
	base
	Name string
}

func NewIncrementStmt(p Position, name string) *IncrementStmt { return &IncrementStmt{base{p}, name} }
func NewDecrementStmt(p Position, name string) *DecrementStmt { return &DecrementStmt{base{p}, name} }

func (n *IncrementStmt) Render(ctx RenderContext) (Signal, error) {
	cur := ctx.Get(counterKey(n.Name)).ToInt64()
	ctx.Set(counterKey(n.Name), value.NumberFromInt(cur+1))
	return Normal, ctx.Write(value.NumberFromInt(cur).ToString())
}

func (n *DecrementStmt) Render(ctx RenderContext) (Signal, error) {
	cur := ctx.Get(counterKey(n.Name)).ToInt64() - 1
	ctx.Set(counterKey(n.Name), value.NumberFromInt(cur))
	return Normal, ctx.Write(value.NumberFromInt(cur).ToString())
}

func counterKey(name string) string { return "__counter__" + name }

// CycleStmt implements `{% cycle [group:] a, b, c %}`: advances a position
// counter keyed by the group (or by the concatenation of its values).
type CycleStmt struct {
	base
	Group  string
	Values []Expression
}

func NewCycleStmt(p Position, group string, values []Expression) *CycleStmt {
	return &CycleStmt{base{p}, group, values}
}

func (n *CycleStmt) Render(ctx RenderContext) (Signal, error) {
	key := "__cycle__" + n.Group
	pos := int(ctx.Get(key).ToInt64())
	if pos >= len(n.Values) {
		pos = 0
	}
	v, err := n.Values[pos].Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	ctx.Set(key, value.NumberFromInt(int64((pos+1)%len(n.Values))))
	return Normal, ctx.WriteEscaped(v.ToString())
}

// IncludeStmt / RenderStmt resolve a child template via the TemplateLoader
// and render it; include shares the current scope, render isolates it
// (spec.md §4.I).
type IncludeStmt struct {
	base
	Name    Expression
	With    Expression // optional: bind the named value under the partial's own name
	Params  map[string]Expression
	Isolate bool
}

func NewIncludeStmt(p Position, name Expression, with Expression, params map[string]Expression, isolate bool) *IncludeStmt {
	return &IncludeStmt{base{p}, name, with, params, isolate}
}

func (n *IncludeStmt) Render(ctx RenderContext) (Signal, error) {
	nameVal, err := n.Name.Evaluate(ctx)
	if err != nil {
		return Normal, err
	}
	name := nameVal.ToString()

	cleanup, err := ctx.EnterInclude(name)
	if err != nil {
		return Terminate, err
	}
	defer cleanup()

	vars := map[string]value.Value{}
	for k, expr := range n.Params {
		v, err := expr.Evaluate(ctx)
		if err != nil {
			return Normal, err
		}
		vars[k] = v
	}
	if n.With != nil {
		v, err := n.With.Evaluate(ctx)
		if err != nil {
			return Normal, err
		}
		vars[name] = v
	}

	out, err := ctx.RenderChild(name, vars, n.Isolate)
	if err != nil {
		return Normal, err
	}
	return Normal, ctx.Write(out)
}

// CommentStmt is a no-op: `{% comment %}...{% endcomment %}` is parsed
// but never rendered.
type CommentStmt struct{ base }

func NewCommentStmt(p Position) *CommentStmt { return &CommentStmt{base{p}} }

func (n *CommentStmt) Render(ctx RenderContext) (Signal, error) { return Normal, nil }
