package ast

import "github.com/codingersid/legit-liquid/value"

// Literal wraps a constant value computed once at parse time.
type Literal struct {
	base
	Value value.Value
}

func NewLiteral(p Position, v value.Value) *Literal { return &Literal{base{p}, v} }

func (n *Literal) Evaluate(ctx RenderContext) (value.Value, error) { return n.Value, nil }

// Variable looks up a bare identifier in the scope stack; undefined names
// evaluate to Nil per spec.md §7, never an error.
type Variable struct {
	base
	Name string
}

func NewVariable(p Position, name string) *Variable { return &Variable{base{p}, name} }

func (n *Variable) Evaluate(ctx RenderContext) (value.Value, error) {
	return ctx.Get(n.Name), nil
}

// MemberAccess implements `a.b`.
type MemberAccess struct {
	base
	Target Expression
	Member string
}

func NewMemberAccess(p Position, target Expression, member string) *MemberAccess {
	return &MemberAccess{base{p}, target, member}
}

func (n *MemberAccess) Evaluate(ctx RenderContext) (value.Value, error) {
	t, err := n.Target.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	return t.GetMember(n.Member), nil
}

// IndexAccess implements `a[expr]`.
type IndexAccess struct {
	base
	Target Expression
	Index  Expression
}

func NewIndexAccess(p Position, target, index Expression) *IndexAccess {
	return &IndexAccess{base{p}, target, index}
}

func (n *IndexAccess) Evaluate(ctx RenderContext) (value.Value, error) {
	t, err := n.Target.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	i, err := n.Index.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	return t.GetIndex(i), nil
}

// RangeExpr implements `(a..b)` inclusive integer ranges.
type RangeExpr struct {
	base
	Low, High Expression
}

func NewRangeExpr(p Position, low, high Expression) *RangeExpr {
	return &RangeExpr{base{p}, low, high}
}

func (n *RangeExpr) Evaluate(ctx RenderContext) (value.Value, error) {
	lo, err := n.Low.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	hi, err := n.High.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	return value.Range(lo.ToInt64(), hi.ToInt64()), nil
}

// FilterArg is one filter argument, positional or named.
type FilterArg struct {
	Name  string // empty for positional
	Value Expression
}

// FilterExpr applies a named filter to the result of Target.
type FilterExpr struct {
	base
	Target Expression
	Name   string
	Args   []FilterArg
}

func NewFilterExpr(p Position, target Expression, name string, args []FilterArg) *FilterExpr {
	return &FilterExpr{base{p}, target, name, args}
}

// FilterLookup is supplied by the evaluator (via RenderContext) so the ast
// package never imports the filter package directly (that would create a
// cycle: filter depends on value only, render depends on both).
type FilterInvoker interface {
	InvokeFilter(name string, input value.Value, args []value.Value, named map[string]value.Value, ctx interface{}) (value.Value, error)
}

func (n *FilterExpr) Evaluate(ctx RenderContext) (value.Value, error) {
	input, err := n.Target.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	invoker, ok := ctx.(FilterInvoker)
	if !ok {
		return value.Nil, &EvalError{Pos: n.Pos(), Message: "context does not support filters"}
	}
	var positional []value.Value
	named := map[string]value.Value{}
	for _, a := range n.Args {
		v, err := a.Value.Evaluate(ctx)
		if err != nil {
			return value.Nil, err
		}
		if a.Name == "" {
			positional = append(positional, v)
		} else {
			named[a.Name] = v
		}
	}
	return invoker.InvokeFilter(n.Name, input, positional, named, ctx)
}

// NotExpr implements `unless`, parsed as an if whose guard is negated
// (spec.md §4.C: "unless" has no dedicated AST node).
type NotExpr struct {
	base
	Expr Expression
}

func NewNotExpr(p Position, e Expression) *NotExpr { return &NotExpr{base{p}, e} }

func (n *NotExpr) Evaluate(ctx RenderContext) (value.Value, error) {
	v, err := n.Expr.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}
	return value.Bool(!v.ToBool()), nil
}

// BinaryOp identifies a comparison or logical operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpAnd
	OpOr
)

// BinaryExpr implements comparisons and and/or. Per spec.md §4.B, and/or
// share one chain with no precedence distinction between them and
// associate right-to-left (Liquid's well-known quirk: `a and b or c`
// groups as `a and (b or c)`).
type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expression
}

func NewBinaryExpr(p Position, op BinaryOp, left, right Expression) *BinaryExpr {
	return &BinaryExpr{base{p}, op, left, right}
}

func (n *BinaryExpr) Evaluate(ctx RenderContext) (value.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}

	// and/or short-circuit without evaluating the right side when possible.
	if n.Op == OpAnd && !l.ToBool() {
		return value.Bool(false), nil
	}
	if n.Op == OpOr && l.ToBool() {
		return value.Bool(true), nil
	}

	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return value.Nil, err
	}

	switch n.Op {
	case OpEq:
		return value.Bool(l.Equals(r)), nil
	case OpNe:
		return value.Bool(!l.Equals(r)), nil
	case OpContains:
		return value.Bool(l.Contains(r)), nil
	case OpAnd:
		return value.Bool(r.ToBool()), nil
	case OpOr:
		return value.Bool(r.ToBool()), nil
	case OpLt, OpLe, OpGt, OpGe:
		cmp, ok := value.Less(l, r)
		if !ok {
			return value.Bool(false), nil
		}
		switch n.Op {
		case OpLt:
			return value.Bool(cmp < 0), nil
		case OpLe:
			return value.Bool(cmp <= 0), nil
		case OpGt:
			return value.Bool(cmp > 0), nil
		case OpGe:
			return value.Bool(cmp >= 0), nil
		}
	}
	return value.Nil, &EvalError{Pos: n.Pos(), Message: "unreachable binary op"}
}

// EvalError is raised during rendering: missing filter, bad argument,
// loader failure, recursion limit, cancellation (spec.md §7).
type EvalError struct {
	Pos      Position
	Template string
	Message  string
	Cause    error
}

func (e *EvalError) Error() string {
	if e.Template != "" {
		return e.Template + ": " + e.Message
	}
	return e.Message
}

func (e *EvalError) Unwrap() error { return e.Cause }
