package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingersid/legit-liquid/loader"
)

func mustRenderString(t *testing.T, tmpl string, data interface{}) string {
	t.Helper()
	l := loader.NewMap(map[string]string{"t": tmpl})
	eng := New("", WithLoader(l))
	out, err := eng.RenderString("t", data)
	require.NoError(t, err)
	return out
}

func TestEngine_Scenario1_SimpleOutput(t *testing.T) {
	out := mustRenderString(t, "Hello {{ name }}!", map[string]interface{}{"name": "World"})
	assert.Equal(t, "Hello World!", out)
}

func TestEngine_Scenario2_ForWithBreak(t *testing.T) {
	out := mustRenderString(t,
		`{% for i in (1..3) %}{{ i }}{% if i == 2 %}{% break %}{% endif %}{% endfor %}`, nil)
	assert.Equal(t, "12", out)
}

func TestEngine_Scenario3_FilterChain(t *testing.T) {
	out := mustRenderString(t,
		`{% assign xs = "a,b,c" | split: "," %}{{ xs | join: "-" | upcase }}`, nil)
	assert.Equal(t, "A-B-C", out)
}

func TestEngine_Scenario4_CaptureAndAppend(t *testing.T) {
	out := mustRenderString(t,
		`{% capture g %}{{ 'x' | append: 'y' }}{% endcapture %}[{{ g }}]`, nil)
	assert.Equal(t, "[xy]", out)
}

func TestEngine_Scenario5_MemberAndIndexAccess(t *testing.T) {
	out := mustRenderString(t,
		`{% if items.size > 0 %}{{ items[0].n }}{% else %}none{% endif %}`,
		map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"n": 42},
		}})
	assert.Equal(t, "42", out)
}

func TestEngine_Scenario6_HTMLEncoding(t *testing.T) {
	out := mustRenderString(t, `<b>{{ raw }}</b>`, map[string]interface{}{"raw": "<i>&</i>"})
	assert.Equal(t, "<b>&lt;i&gt;&amp;&lt;/i&gt;</b>", out)
}

func TestEngine_NoStatements_RendersEmpty(t *testing.T) {
	assert.Equal(t, "", mustRenderString(t, "", nil))
}

func TestEngine_PlainTextRoundTrips(t *testing.T) {
	assert.Equal(t, "just some plain text, no delimiters here", mustRenderString(t, "just some plain text, no delimiters here", nil))
}

func TestEngine_AssignThenOutput(t *testing.T) {
	out := mustRenderString(t, `{% assign x = 5 %}{{ x }}`, nil)
	assert.Equal(t, "5", out)
}

func TestEngine_CacheReturnsSameASTUntilSourceChanges(t *testing.T) {
	l := loader.NewMap(map[string]string{"t": "v1"})
	eng := New("", WithLoader(l))
	first, err := eng.Parse("t")
	require.NoError(t, err)
	second, err := eng.Parse("t")
	require.NoError(t, err)
	assert.Same(t, first, second, "unchanged source should hit the cache")

	l.Set("t", "v2")
	third, err := eng.Parse("t")
	require.NoError(t, err)
	assert.NotSame(t, first, third, "changed source must invalidate the cache")
}

func TestEngine_IncludeSharesScope(t *testing.T) {
	l := loader.NewMap(map[string]string{
		"main":    `{% assign x = "outer" %}{% include 'partial' %}{{ x }}`,
		"partial": `{% assign x = "inner" %}`,
	})
	eng := New("", WithLoader(l))
	out, err := eng.RenderString("main", nil)
	require.NoError(t, err)
	assert.Equal(t, "inner", out)
}

func TestEngine_RenderIsolatesScope(t *testing.T) {
	l := loader.NewMap(map[string]string{
		"main":    `{% assign x = "outer" %}{% render 'partial' %}{{ x }}`,
		"partial": `{% assign x = "inner" %}`,
	})
	eng := New("", WithLoader(l))
	out, err := eng.RenderString("main", nil)
	require.NoError(t, err)
	assert.Equal(t, "outer", out)
}

func TestEngine_RenderWithParams(t *testing.T) {
	l := loader.NewMap(map[string]string{
		"main":     `{% render 'greeting', name: "Ada" %}`,
		"greeting": `Hi {{ name }}`,
	})
	eng := New("", WithLoader(l))
	out, err := eng.RenderString("main", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", out)
}

func TestEngine_CyclicIncludeIsRejected(t *testing.T) {
	l := loader.NewMap(map[string]string{
		"a": `{% include 'b' %}`,
		"b": `{% include 'a' %}`,
	})
	eng := New("", WithLoader(l))
	_, err := eng.RenderString("a", nil)
	assert.Error(t, err)
}
