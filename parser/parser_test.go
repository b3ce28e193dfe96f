package parser

import (
	"testing"

	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/value"
)

func mustParse(t *testing.T, input string) *ast.Template {
	t.Helper()
	tmpl, err := Parse("t", input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return tmpl
}

func TestParser_Text(t *testing.T) {
	tmpl := mustParse(t, "Hello World")
	if len(tmpl.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(tmpl.Nodes))
	}
	raw, ok := tmpl.Nodes[0].(*ast.RawText)
	if !ok {
		t.Fatalf("expected RawText, got %T", tmpl.Nodes[0])
	}
	if raw.Text != "Hello World" {
		t.Errorf("expected %q, got %q", "Hello World", raw.Text)
	}
}

func TestParser_Output(t *testing.T) {
	tmpl := mustParse(t, "{{ name }}")
	out, ok := tmpl.Nodes[0].(*ast.Output)
	if !ok {
		t.Fatalf("expected Output, got %T", tmpl.Nodes[0])
	}
	v, ok := out.Expr.(*ast.Variable)
	if !ok {
		t.Fatalf("expected Variable, got %T", out.Expr)
	}
	if v.Name != "name" {
		t.Errorf("expected variable 'name', got %q", v.Name)
	}
}

func TestParser_MemberAndIndexChain(t *testing.T) {
	tmpl := mustParse(t, "{{ items[0].name }}")
	out := tmpl.Nodes[0].(*ast.Output)
	member, ok := out.Expr.(*ast.MemberAccess)
	if !ok {
		t.Fatalf("expected outer MemberAccess, got %T", out.Expr)
	}
	if member.Member != "name" {
		t.Errorf("expected member 'name', got %q", member.Member)
	}
	if _, ok := member.Target.(*ast.IndexAccess); !ok {
		t.Fatalf("expected IndexAccess target, got %T", member.Target)
	}
}

func TestParser_FilterChainWithArgs(t *testing.T) {
	tmpl := mustParse(t, `{{ xs | join: "-" | upcase }}`)
	out := tmpl.Nodes[0].(*ast.Output)
	outer, ok := out.Expr.(*ast.FilterExpr)
	if !ok || outer.Name != "upcase" {
		t.Fatalf("expected outer filter 'upcase', got %#v", out.Expr)
	}
	inner, ok := outer.Target.(*ast.FilterExpr)
	if !ok || inner.Name != "join" {
		t.Fatalf("expected inner filter 'join', got %#v", outer.Target)
	}
	if len(inner.Args) != 1 || inner.Args[0].Name != "" {
		t.Fatalf("expected one positional arg, got %#v", inner.Args)
	}
}

func TestParser_NamedFilterArgs(t *testing.T) {
	tmpl := mustParse(t, `{{ s | truncate: 10, ellipsis: "..." }}`)
	out := tmpl.Nodes[0].(*ast.Output)
	f := out.Expr.(*ast.FilterExpr)
	if len(f.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(f.Args))
	}
	if f.Args[0].Name != "" {
		t.Errorf("expected first arg positional, got name %q", f.Args[0].Name)
	}
	if f.Args[1].Name != "ellipsis" {
		t.Errorf("expected second arg named 'ellipsis', got %q", f.Args[1].Name)
	}
}

func TestParser_IfElsifElse(t *testing.T) {
	tmpl := mustParse(t, `{% if a %}A{% elsif b %}B{% else %}C{% endif %}`)
	ifs, ok := tmpl.Nodes[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", tmpl.Nodes[0])
	}
	if len(ifs.Branches) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(ifs.Branches))
	}
	if ifs.Branches[2].Guard != nil {
		t.Error("expected trailing else branch to have a nil guard")
	}
}

func TestParser_Unless(t *testing.T) {
	tmpl := mustParse(t, `{% unless done %}pending{% endunless %}`)
	ifs, ok := tmpl.Nodes[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", tmpl.Nodes[0])
	}
	if _, ok := ifs.Branches[0].Guard.(*ast.NotExpr); !ok {
		t.Fatalf("expected unless guard to be negated, got %T", ifs.Branches[0].Guard)
	}
}

func TestParser_CaseWhenElse(t *testing.T) {
	tmpl := mustParse(t, `{% case x %}{% when 1 %}one{% when 2, 3 %}two-or-three{% else %}other{% endcase %}`)
	cs, ok := tmpl.Nodes[0].(*ast.CaseStmt)
	if !ok {
		t.Fatalf("expected CaseStmt, got %T", tmpl.Nodes[0])
	}
	if len(cs.Whens) != 2 {
		t.Fatalf("expected 2 when clauses, got %d", len(cs.Whens))
	}
	if len(cs.Whens[1].Values) != 2 {
		t.Fatalf("expected 2 values in second when, got %d", len(cs.Whens[1].Values))
	}
	if cs.Else == nil {
		t.Fatal("expected an else body")
	}
}

func TestParser_ForWithModifiers(t *testing.T) {
	tmpl := mustParse(t, `{% for i in items limit: 2 offset: 1 reversed %}{{ i }}{% endfor %}`)
	f, ok := tmpl.Nodes[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected ForStmt, got %T", tmpl.Nodes[0])
	}
	if f.Var != "i" {
		t.Errorf("expected loop var 'i', got %q", f.Var)
	}
	if f.Limit == nil || f.Offset == nil || !f.Reversed {
		t.Error("expected limit, offset, and reversed to all be set")
	}
}

func TestParser_ForRangeWithElse(t *testing.T) {
	tmpl := mustParse(t, `{% for i in (1..3) %}{{ i }}{% else %}empty{% endfor %}`)
	f := tmpl.Nodes[0].(*ast.ForStmt)
	if _, ok := f.Source.(*ast.RangeExpr); !ok {
		t.Fatalf("expected RangeExpr source, got %T", f.Source)
	}
	if f.Else == nil {
		t.Fatal("expected an else body")
	}
}

func TestParser_AssignAndCapture(t *testing.T) {
	tmpl := mustParse(t, `{% assign x = 1 | plus: 2 %}{% capture g %}hi{% endcapture %}`)
	if _, ok := tmpl.Nodes[0].(*ast.AssignStmt); !ok {
		t.Fatalf("expected AssignStmt, got %T", tmpl.Nodes[0])
	}
	cap, ok := tmpl.Nodes[1].(*ast.CaptureStmt)
	if !ok {
		t.Fatalf("expected CaptureStmt, got %T", tmpl.Nodes[1])
	}
	if cap.Name != "g" {
		t.Errorf("expected capture name 'g', got %q", cap.Name)
	}
}

func TestParser_IncludeWithParams(t *testing.T) {
	tmpl := mustParse(t, `{% include 'card', title: "Hi", count: 3 %}`)
	inc, ok := tmpl.Nodes[0].(*ast.IncludeStmt)
	if !ok {
		t.Fatalf("expected IncludeStmt, got %T", tmpl.Nodes[0])
	}
	if inc.Isolate {
		t.Error("expected include to share scope, not isolate")
	}
	if len(inc.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(inc.Params))
	}
}

func TestParser_RenderIsolates(t *testing.T) {
	tmpl := mustParse(t, `{% render 'card' %}`)
	inc := tmpl.Nodes[0].(*ast.IncludeStmt)
	if !inc.Isolate {
		t.Error("expected render to isolate scope")
	}
}

func TestParser_CommentProducesNoOp(t *testing.T) {
	tmpl := mustParse(t, `before{% comment %}{{ broken %}{% endcomment %}after`)
	if len(tmpl.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(tmpl.Nodes))
	}
	if _, ok := tmpl.Nodes[1].(*ast.CommentStmt); !ok {
		t.Fatalf("expected CommentStmt, got %T", tmpl.Nodes[1])
	}
}

func TestParser_RawPassesThroughLiterally(t *testing.T) {
	tmpl := mustParse(t, `{% raw %}{{ not_an_expr ! }}{% endraw %}`)
	raw, ok := tmpl.Nodes[0].(*ast.RawText)
	if !ok {
		t.Fatalf("expected RawText, got %T", tmpl.Nodes[0])
	}
	if raw.Text != "{{ not_an_expr ! }}" {
		t.Errorf("unexpected raw passthrough: %q", raw.Text)
	}
}

func TestParser_UnknownTagIsParseError(t *testing.T) {
	_, err := Parse("t", `{% bogus %}`)
	if err == nil {
		t.Fatal("expected a parse error for an unregistered tag")
	}
}

func TestParser_LogicalOperatorsAssociateRightToLeft(t *testing.T) {
	// Liquid's well-known quirk: `a and b or c` groups as `a and (b or c)`,
	// not `(a and b) or c` — and/or share one right-associative chain.
	tmpl := mustParse(t, `{% if a and b or c %}x{% endif %}`)
	ifs := tmpl.Nodes[0].(*ast.IfStmt)
	top, ok := ifs.Branches[0].Guard.(*ast.BinaryExpr)
	if !ok || top.Op != ast.OpAnd {
		t.Fatalf("expected top-level operator to be 'and' (first, right-to-left), got %#v", ifs.Branches[0].Guard)
	}
	if _, ok := top.Right.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected right operand to be the 'b or c' subexpression, got %T", top.Right)
	}
}

func TestParser_EmptyAndBlankLiterals(t *testing.T) {
	tmpl := mustParse(t, `{% if items == empty %}e{% endif %}`)
	ifs := tmpl.Nodes[0].(*ast.IfStmt)
	cmp := ifs.Branches[0].Guard.(*ast.BinaryExpr)
	lit, ok := cmp.Right.(*ast.Literal)
	if !ok || lit.Value.Kind() != value.KindEmpty {
		t.Fatalf("expected empty-literal on the right side of ==, got %#v", cmp.Right)
	}
}
