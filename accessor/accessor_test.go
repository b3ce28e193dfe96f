package accessor

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingersid/legit-liquid/value"
)

type product struct {
	Name  string
	Price float64
}

func (p product) DisplayName() string { return "** " + p.Name + " **" }

func TestRegistryResolvesRegisteredGetter(t *testing.T) {
	reg := New(nil)
	reg.Register(reflect.TypeOf(product{}), "name", func(obj interface{}) (value.Value, bool) {
		return value.String(obj.(product).Name), true
	})

	g, ok := reg.Resolve(reflect.TypeOf(product{}), "name")
	require.True(t, ok)
	v, ok := g(product{Name: "Widget"})
	require.True(t, ok)
	assert.Equal(t, "Widget", v.ToString())
}

func TestRegistryFallsBackToParent(t *testing.T) {
	parent := New(nil)
	parent.Register(reflect.TypeOf(product{}), "price", func(obj interface{}) (value.Value, bool) {
		return value.NumberFromFloat(obj.(product).Price), true
	})
	child := New(parent)

	g, ok := child.Resolve(reflect.TypeOf(product{}), "price")
	require.True(t, ok)
	v, _ := g(product{Price: 9.99})
	assert.Equal(t, int64(9), v.ToInt64())
}

func TestRegistrySafeModeRejectsUnregisteredMembers(t *testing.T) {
	reg := New(nil)

	_, ok := reg.Resolve(reflect.TypeOf(product{}), "Name")
	assert.False(t, ok, "member_access_strategy defaults to safe: unregistered fields must not resolve")
}

func TestRegistryUnsafeModeFallsBackToReflectionForFieldsAndMethods(t *testing.T) {
	reg := New(nil)
	reg.SetMemberAccessUnsafe(true)

	g, ok := reg.Resolve(reflect.TypeOf(product{}), "Name")
	require.True(t, ok)
	v, _ := g(product{Name: "Gadget"})
	assert.Equal(t, "Gadget", v.ToString())

	g, ok = reg.Resolve(reflect.TypeOf(product{}), "DisplayName")
	require.True(t, ok)
	v, _ = g(product{Name: "Gadget"})
	assert.Equal(t, "** Gadget **", v.ToString())
}

func TestRegistryUnsafeModeOnParentAppliesToChild(t *testing.T) {
	parent := New(nil)
	parent.SetMemberAccessUnsafe(true)
	child := New(parent)

	g, ok := child.Resolve(reflect.TypeOf(product{}), "Name")
	require.True(t, ok, "child registry must inherit the parent's unsafe member_access_strategy")
	v, _ := g(product{Name: "Inherited"})
	assert.Equal(t, "Inherited", v.ToString())
}

func TestRegistryResolveCachesMisses(t *testing.T) {
	reg := New(nil)
	_, ok := reg.Resolve(reflect.TypeOf(42), "nonexistent")
	assert.False(t, ok)
	// second lookup should hit the cached nil entry, not panic or diverge
	_, ok = reg.Resolve(reflect.TypeOf(42), "nonexistent")
	assert.False(t, ok)
}

func TestFromHostClassifiesScalarsAndCollections(t *testing.T) {
	reg := New(nil)

	assert.Equal(t, value.KindString, FromHost("x", reg).Kind())
	assert.Equal(t, value.KindNumber, FromHost(42, reg).Kind())
	assert.Equal(t, value.KindBool, FromHost(true, reg).Kind())

	arr := FromHost([]interface{}{1, 2, 3}, reg)
	assert.Equal(t, value.KindArray, arr.Kind())
	assert.Equal(t, 3, arr.Len())

	dict := FromHost(map[string]interface{}{"a": 1}, reg)
	assert.Equal(t, value.KindDict, dict.Kind())
}

func TestFromHostPassesThroughExistingValues(t *testing.T) {
	v := value.String("already a value")
	assert.True(t, FromHost(v, New(nil)).Equals(v))
}

func TestFromHostHonorsConverters(t *testing.T) {
	reg := New(nil)
	conv := func(obj interface{}) (value.Value, interface{}, bool, bool) {
		if s, ok := obj.(product); ok {
			return value.String(s.Name), nil, true, false
		}
		return value.Nil, nil, false, false
	}
	v := FromHost(product{Name: "Converted"}, reg, conv)
	assert.Equal(t, "Converted", v.ToString())
}
