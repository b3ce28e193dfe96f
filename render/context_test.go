package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/value"
)

type stubSource struct {
	templates map[string]*ast.Template
}

func (s *stubSource) Parse(name string) (*ast.Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, assert.AnError
	}
	return t, nil
}

func (s *stubSource) Loader() ast.Loader { return nil }

func newTestContext() *Context {
	return New(DefaultOptions(), &stubSource{templates: map[string]*ast.Template{}}, value.Nil)
}

func TestContext_ScopeShadowsOuter(t *testing.T) {
	c := newTestContext()
	c.Set("x", value.String("outer"))
	c.PushScope()
	c.Set("x", value.String("inner"))
	assert.Equal(t, "inner", c.Get("x").ToString())
	c.PopScope()
	assert.Equal(t, "outer", c.Get("x").ToString())
}

func TestContext_ScopeBalanceAfterPushPop(t *testing.T) {
	c := newTestContext()
	start := c.Depth()
	c.PushScope()
	c.PushScope()
	c.PopScope()
	c.PopScope()
	assert.Equal(t, start, c.Depth())
}

func TestContext_PopScopeNeverDropsBelowOne(t *testing.T) {
	c := newTestContext()
	c.PopScope()
	c.PopScope()
	assert.Equal(t, 1, c.Depth())
}

func TestContext_WriteEscapedUsesEncoderExactlyOnce(t *testing.T) {
	c := newTestContext()
	require.NoError(t, c.WriteEscaped("<b>"))
	assert.Equal(t, "&lt;b&gt;", c.String())
}

func TestContext_CaptureRedirectsWrites(t *testing.T) {
	c := newTestContext()
	require.NoError(t, c.Write("before"))
	c.PushCapture()
	require.NoError(t, c.Write("captured"))
	got := c.PopCapture()
	require.NoError(t, c.Write("after"))

	assert.Equal(t, "captured", got)
	assert.Equal(t, "beforeafter", c.String())
}

func TestContext_LoopFrameTracksPositionAndParity(t *testing.T) {
	c := newTestContext()
	frame := c.PushLoop(3)
	assert.True(t, frame.First())
	frame.Index = 2
	assert.True(t, frame.Last())
	assert.Equal(t, 0, frame.RIndex0())
	c.PopLoop()
	assert.Nil(t, c.CurrentLoop())
}

func TestContext_NestedLoopExposesParent(t *testing.T) {
	c := newTestContext()
	outer := c.PushLoop(2)
	inner := c.PushLoop(5)
	assert.Same(t, outer, inner.Parent)
	c.PopLoop()
	assert.Same(t, outer, c.CurrentLoop())
}

func TestContext_EnterIncludeRejectsCycles(t *testing.T) {
	c := newTestContext()
	done, err := c.EnterInclude("a")
	require.NoError(t, err)
	defer done()

	_, err = c.EnterInclude("a")
	assert.Error(t, err)
}

func TestContext_EnterIncludeEnforcesRecursionLimit(t *testing.T) {
	c := newTestContext()
	c.opts.MaxRecursion = 2
	done1, err := c.EnterInclude("a")
	require.NoError(t, err)
	defer done1()
	done2, err := c.EnterInclude("b")
	require.NoError(t, err)
	defer done2()

	_, err = c.EnterInclude("c")
	assert.Error(t, err)
}

func TestContext_StepOrAbortEnforcesMaxSteps(t *testing.T) {
	c := newTestContext()
	c.opts.MaxSteps = 2
	require.NoError(t, c.StepOrAbort())
	require.NoError(t, c.StepOrAbort())
	assert.Error(t, c.StepOrAbort())
}

func TestContext_RenderChildIsolatesScope(t *testing.T) {
	src := &stubSource{templates: map[string]*ast.Template{
		"partial": {Name: "partial", Nodes: ast.Block{ast.NewOutput(ast.Position{}, ast.NewVariable(ast.Position{}, "x"))}},
	}}
	c := New(DefaultOptions(), src, value.Nil)
	c.Set("x", value.String("outer"))

	out, err := c.RenderChild("partial", map[string]value.Value{"x": value.String("inner")}, true)
	require.NoError(t, err)
	assert.Equal(t, "inner", out)
	assert.Equal(t, "outer", c.Get("x").ToString())
}

func TestContext_RenderChildIncludeCanReadOuterScope(t *testing.T) {
	src := &stubSource{templates: map[string]*ast.Template{
		"partial": {Name: "partial", Nodes: ast.Block{ast.NewOutput(ast.Position{}, ast.NewVariable(ast.Position{}, "x"))}},
	}}
	c := New(DefaultOptions(), src, value.Nil)
	c.Set("x", value.String("outer"))

	out, err := c.RenderChild("partial", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "outer", out, "include must see variables from the including scope")
}

func TestContext_RenderChildRenderCannotReadOuterScope(t *testing.T) {
	src := &stubSource{templates: map[string]*ast.Template{
		"partial": {Name: "partial", Nodes: ast.Block{ast.NewOutput(ast.Position{}, ast.NewVariable(ast.Position{}, "x"))}},
	}}
	c := New(DefaultOptions(), src, value.Nil)
	c.Set("x", value.String("outer"))

	out, err := c.RenderChild("partial", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "", out, "render must not see variables from the including scope")
}
