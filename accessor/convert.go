package accessor

import (
	"reflect"
	"time"

	"github.com/cockroachdb/apd/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/codingersid/legit-liquid/value"
)

// ValueConverter participates in the classification chain from spec.md
// §4.E step 2. It returns v with handled=true when it fully resolves the
// host object to a runtime value, or a substitute with restart=true to ask
// the chain to restart classification on a different host object. When
// neither applies it returns handled=false and restart=false.
type ValueConverter func(obj interface{}) (v value.Value, substitute interface{}, handled bool, restart bool)

// FromHost runs the ordered construction chain described in spec.md
// §4.E: pass through existing Values, apply registered converters in
// order, then dispatch on runtime shape.
func FromHost(obj interface{}, reg *Registry, converters ...ValueConverter) value.Value {
	for i := 0; i < 8; i++ { // bound restarts against pathological converters
		if v, ok := obj.(value.Value); ok {
			return v
		}
		restarted := false
		for _, conv := range converters {
			v, substitute, handled, restart := conv(obj)
			if handled {
				return v
			}
			if restart {
				obj = substitute
				restarted = true
				break
			}
		}
		if restarted {
			continue
		}
		return classify(obj, reg, converters)
	}
	return value.Nil
}

func classify(obj interface{}, reg *Registry, converters []ValueConverter) value.Value {
	if obj == nil {
		return value.Nil
	}

	switch t := obj.(type) {
	case value.Value:
		return t
	case bool:
		return value.Bool(t)
	case string:
		return value.String(t)
	case *apd.Decimal:
		return value.NumberFromDecimal(t)
	case time.Time:
		return value.DateTime(t)
	case int:
		return value.NumberFromInt(int64(t))
	case int8:
		return value.NumberFromInt(int64(t))
	case int16:
		return value.NumberFromInt(int64(t))
	case int32:
		return value.NumberFromInt(int64(t))
	case int64:
		return value.NumberFromInt(t)
	case uint:
		return value.NumberFromInt(int64(t))
	case uint8:
		return value.NumberFromInt(int64(t))
	case uint16:
		return value.NumberFromInt(int64(t))
	case uint32:
		return value.NumberFromInt(int64(t))
	case uint64:
		return value.NumberFromInt(int64(t))
	case float32:
		return value.NumberFromFloat(float64(t))
	case float64:
		return value.NumberFromFloat(t)
	case []value.Value:
		return value.Array(t)
	case map[string]interface{}:
		m := orderedmap.New[string, value.Value]()
		for k, v := range t {
			m.Set(k, FromHost(v, reg, converters...))
		}
		return value.DictFromMap(m)
	case map[string]string:
		m := orderedmap.New[string, value.Value]()
		for k, v := range t {
			m.Set(k, value.String(v))
		}
		return value.DictFromMap(m)
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Map:
		m := orderedmap.New[string, value.Value]()
		iter := rv.MapRange()
		for iter.Next() {
			m.Set(toStringKey(iter.Key()), FromHost(iter.Value().Interface(), reg, converters...))
		}
		return value.DictFromMap(m)
	case reflect.Slice, reflect.Array:
		out := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = FromHost(rv.Index(i).Interface(), reg, converters...)
		}
		return value.Array(out)
	case reflect.Ptr:
		if rv.IsNil() {
			return value.Nil
		}
	}

	acc := &ValueAccessor{Registry: reg}
	return value.Object(obj, acc)
}

func toStringKey(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return FromHost(rv.Interface(), nil).ToString()
}
