// Package value implements the polymorphic runtime value described in
// spec.md §3–§4.E: a tagged sum with uniform conversion, equality,
// iteration, member access and indexing, independent of any single host
// type system.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind tags the active variant of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindDateTime
	KindArray
	KindDict
	KindObject
	KindRange
	KindFunction
	// KindEmpty and KindBlank back the `empty`/`blank` literals: sentinels
	// that only ever appear on one side of an == comparison (spec.md §3's
	// literal set), never as a value stored in a scope.
	KindEmpty
	KindBlank
)

// Accessor resolves a member name against an opaque host object. It is the
// bridge the value system uses for Kind == KindObject; see package
// accessor for the registry that produces these.
type Accessor interface {
	GetMember(obj interface{}, name string) (Value, bool)
	GetIndex(obj interface{}, idx Value) (Value, bool)
	Iterate(obj interface{}) ([]Value, bool)
}

// Function is the shape of an invocable value (macro-like tags, and
// filters that return partially-applied callables).
type Function func(args []Value) (Value, error)

// Value is the sum type every expression evaluates to.
type Value struct {
	kind     Kind
	boolean  bool
	number   *apd.Decimal
	str      string
	datetime time.Time
	array    []Value
	dict     *orderedmap.OrderedMap[string, Value]
	object   interface{}
	accessor Accessor
	rangeLo  int64
	rangeHi  int64
	fn       Function
	safe     bool
}

var decimalCtx = apd.BaseContext.WithPrecision(40)

// DecimalContext exposes the shared arbitrary-precision context used for
// Number arithmetic, for use by the filter package's math filters.
func DecimalContext() *apd.Context { return decimalCtx }

// Nil is the singular nil value.
var Nil = Value{kind: KindNil}

func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

func String(s string) Value { return Value{kind: KindString, str: s} }

// SafeString marks a string as already escaped for the active encoder
// (spec.md §4.I: "unless the value is a pre-escaped string variant").
// Used by filters such as escape/escape_once that hand back HTML-safe
// text the evaluator must not double-encode.
func SafeString(s string) Value { return Value{kind: KindString, str: s, safe: true} }

// IsSafe reports whether v is a string the output statement should write
// verbatim rather than passing through the encoder.
func IsSafe(v Value) bool { return v.kind == KindString && v.safe }

// DictFromGoMap builds a Dictionary value from a plain Go map. Iteration
// order over the result is the map's (unspecified) order; callers that
// need insertion order should build via DictFromMap/EmptyDict instead.
func DictFromGoMap(m map[string]Value) Value {
	om := orderedmap.New[string, Value]()
	for k, v := range m {
		om.Set(k, v)
	}
	return Value{kind: KindDict, dict: om}
}

// NumberFromInt constructs a Number value from an integer, preserving scale 0.
func NumberFromInt(i int64) Value {
	d := apd.New(i, 0)
	return Value{kind: KindNumber, number: d}
}

// NumberFromFloat constructs a Number from a float64, using its natural
// decimal representation rather than the binary float scale.
func NumberFromFloat(f float64) Value {
	d, _, _ := apd.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
	return Value{kind: KindNumber, number: d}
}

// NumberFromString parses a decimal literal, preserving its scale (the
// count of digits after the decimal point), e.g. "1.0" keeps scale 1.
func NumberFromString(s string) (Value, bool) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Nil, false
	}
	return Value{kind: KindNumber, number: d}, true
}

func NumberFromDecimal(d *apd.Decimal) Value {
	return Value{kind: KindNumber, number: d}
}

func DateTime(t time.Time) Value { return Value{kind: KindDateTime, datetime: t} }

func Array(items []Value) Value { return Value{kind: KindArray, array: items} }

func EmptyDict() Value {
	return Value{kind: KindDict, dict: orderedmap.New[string, Value]()}
}

func DictFromMap(m *orderedmap.OrderedMap[string, Value]) Value {
	return Value{kind: KindDict, dict: m}
}

// Object wraps an opaque host value, reachable only through the accessor
// passed in (see spec.md §4.F — "access is always mediated").
func Object(obj interface{}, acc Accessor) Value {
	return Value{kind: KindObject, object: obj, accessor: acc}
}

func Range(lo, hi int64) Value { return Value{kind: KindRange, rangeLo: lo, rangeHi: hi} }

// Empty and Blank construct the sentinel values behind Liquid's `empty`
// and `blank` literals. They compare equal to certain other values (see
// Equals) but are never themselves produced by accessors or filters.
func Empty() Value { return Value{kind: KindEmpty} }
func Blank() Value { return Value{kind: KindBlank} }

func Func(fn Function) Value { return Value{kind: KindFunction, fn: fn} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// ToBool implements the truthiness law from spec.md §3: only Nil and
// Boolean(false) are falsy.
func (v Value) ToBool() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.boolean
	default:
		return true
	}
}

// ToNumber coerces a value to a Number. Non-numeric strings coerce to 0,
// per spec.md §7 ("type coercions never throw").
func (v Value) ToNumber() Value {
	switch v.kind {
	case KindNumber:
		return v
	case KindBool:
		if v.boolean {
			return NumberFromInt(1)
		}
		return NumberFromInt(0)
	case KindString:
		if n, ok := NumberFromString(strings.TrimSpace(v.str)); ok {
			return n
		}
		return NumberFromInt(0)
	default:
		return NumberFromInt(0)
	}
}

// Decimal exposes the underlying *apd.Decimal for a Number value, or nil.
func (v Value) Decimal() *apd.Decimal {
	if v.kind == KindNumber {
		return v.number
	}
	return nil
}

// ToString implements to_string: nil renders as "", decimals preserve
// scale, arrays and ranges render as their elements joined with no
// separator, and dicts and objects render with Go's %v formatting.
func (v Value) ToString() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return v.number.Text('f')
	case KindString:
		return v.str
	case KindDateTime:
		return v.datetime.Format(time.RFC3339)
	case KindArray:
		parts := make([]string, len(v.array))
		for i, e := range v.array {
			parts[i] = e.ToString()
		}
		return strings.Join(parts, "")
	case KindDict:
		return fmt.Sprintf("%v", v.dict)
	case KindRange:
		items, _ := v.rangeItems()
		parts := make([]string, len(items))
		for i, e := range items {
			parts[i] = e.ToString()
		}
		return strings.Join(parts, "")
	case KindObject:
		return fmt.Sprintf("%v", v.object)
	case KindFunction:
		return ""
	default:
		return ""
	}
}

func (v Value) ToObject() interface{} {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.boolean
	case KindNumber:
		f, _ := v.number.Float64()
		return f
	case KindString:
		return v.str
	case KindDateTime:
		return v.datetime
	case KindArray:
		out := make([]interface{}, len(v.array))
		for i, e := range v.array {
			out[i] = e.ToObject()
		}
		return out
	case KindObject:
		return v.object
	default:
		return v.ToString()
	}
}

// Equals implements spec.md §3's structural equality: Nil==Nil, numeric
// string coercion for Number==String, structural comparison for
// Array/Dictionary.
func (v Value) Equals(other Value) bool {
	if v.kind == KindEmpty {
		return isEmptyValue(other)
	}
	if other.kind == KindEmpty {
		return isEmptyValue(v)
	}
	if v.kind == KindBlank {
		return isBlankValue(other)
	}
	if other.kind == KindBlank {
		return isBlankValue(v)
	}
	if v.kind == KindNil || other.kind == KindNil {
		return v.kind == other.kind
	}
	if v.kind == KindNumber || other.kind == KindNumber {
		if isNumeric(v) && isNumeric(other) {
			a, b := v.ToNumber(), other.ToNumber()
			cmp, err := a.number.Cmp(b.number)
			return err == nil && cmp == 0
		}
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.boolean == other.boolean
	case KindString:
		return v.str == other.str
	case KindDateTime:
		return v.datetime.Equal(other.datetime)
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equals(other.array[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if v.dict.Len() != other.dict.Len() {
			return false
		}
		for pair := v.dict.Oldest(); pair != nil; pair = pair.Next() {
			ov, ok := other.dict.Get(pair.Key)
			if !ok || !pair.Value.Equals(ov) {
				return false
			}
		}
		return true
	case KindRange:
		return v.rangeLo == other.rangeLo && v.rangeHi == other.rangeHi
	default:
		return false
	}
}

// isEmptyValue implements the `empty` literal: true for a zero-length
// String, Array, or Dictionary. Nil is not empty (Liquid distinguishes
// an absent variable from a present-but-empty collection).
func isEmptyValue(v Value) bool {
	switch v.kind {
	case KindString:
		return v.str == ""
	case KindArray:
		return len(v.array) == 0
	case KindDict:
		return v.dict.Len() == 0
	case KindRange:
		items, _ := v.rangeItems()
		return len(items) == 0
	default:
		return false
	}
}

// isBlankValue implements the `blank` literal: Nil, false, or a string
// containing only whitespace (or no characters at all).
func isBlankValue(v Value) bool {
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return !v.boolean
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

func isNumeric(v Value) bool {
	if v.kind == KindNumber {
		return true
	}
	if v.kind == KindString {
		_, ok := NumberFromString(strings.TrimSpace(v.str))
		return ok
	}
	return false
}

// GetMember implements member access (a.b). Missing members yield Nil,
// never an error, per spec.md §7.
func (v Value) GetMember(name string) Value {
	switch v.kind {
	case KindDict:
		if val, ok := v.dict.Get(name); ok {
			return val
		}
		return Nil
	case KindArray:
		switch name {
		case "size", "length":
			return NumberFromInt(int64(len(v.array)))
		case "first":
			if len(v.array) == 0 {
				return Nil
			}
			return v.array[0]
		case "last":
			if len(v.array) == 0 {
				return Nil
			}
			return v.array[len(v.array)-1]
		}
		return Nil
	case KindString:
		switch name {
		case "size", "length":
			return NumberFromInt(int64(len([]rune(v.str))))
		}
		return Nil
	case KindObject:
		if v.accessor != nil {
			if val, ok := v.accessor.GetMember(v.object, name); ok {
				return val
			}
		}
		return Nil
	default:
		return Nil
	}
}

// GetIndex implements index access (a[expr]): integer indices for Array
// and Range, string keys for Dictionary.
func (v Value) GetIndex(idx Value) Value {
	switch v.kind {
	case KindArray:
		i := indexOf(idx, len(v.array))
		if i < 0 || i >= len(v.array) {
			return Nil
		}
		return v.array[i]
	case KindDict:
		val, ok := v.dict.Get(idx.ToString())
		if !ok {
			return Nil
		}
		return val
	case KindRange:
		items, _ := v.rangeItems()
		i := indexOf(idx, len(items))
		if i < 0 || i >= len(items) {
			return Nil
		}
		return items[i]
	case KindString:
		r := []rune(v.str)
		i := indexOf(idx, len(r))
		if i < 0 || i >= len(r) {
			return Nil
		}
		return String(string(r[i]))
	case KindObject:
		if v.accessor != nil {
			if val, ok := v.accessor.GetIndex(v.object, idx); ok {
				return val
			}
		}
		return Nil
	default:
		return Nil
	}
}

func indexOf(idx Value, length int) int {
	i := int(idx.ToNumber().ToInt64())
	if i < 0 {
		i = length + i
	}
	return i
}

// ToInt64 truncates a Number to an int64, used for indices and loop
// bounds. Non-numeric values coerce to 0.
func (v Value) ToInt64() int64 {
	n := v.ToNumber()
	i, err := n.number.Int64()
	if err != nil {
		f, _ := n.number.Float64()
		return int64(f)
	}
	return i
}

func (v Value) rangeItems() ([]Value, bool) {
	if v.rangeHi < v.rangeLo {
		return nil, true
	}
	n := v.rangeHi - v.rangeLo + 1
	items := make([]Value, 0, n)
	for i := v.rangeLo; i <= v.rangeHi; i++ {
		items = append(items, NumberFromInt(i))
	}
	return items, true
}

// Iterate implements the iteration contract: dictionaries yield
// two-element [key, value] arrays per spec.md §3.
func (v Value) Iterate() []Value {
	switch v.kind {
	case KindArray:
		return v.array
	case KindRange:
		items, _ := v.rangeItems()
		return items
	case KindDict:
		out := make([]Value, 0, v.dict.Len())
		for pair := v.dict.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, Array([]Value{String(pair.Key), pair.Value}))
		}
		return out
	case KindObject:
		if v.accessor != nil {
			if items, ok := v.accessor.Iterate(v.object); ok {
				return items
			}
		}
		return nil
	default:
		return nil
	}
}

// Contains implements the `contains` binary operator: substring search
// for strings, membership for arrays, key membership for dictionaries.
func (v Value) Contains(needle Value) bool {
	switch v.kind {
	case KindString:
		return strings.Contains(v.str, needle.ToString())
	case KindArray:
		for _, e := range v.array {
			if e.Equals(needle) {
				return true
			}
		}
		return false
	case KindDict:
		_, ok := v.dict.Get(needle.ToString())
		return ok
	default:
		return false
	}
}

// Len returns the Liquid "size" of array/string/dict/range values, used
// by the size filter.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.array)
	case KindString:
		return len([]rune(v.str))
	case KindDict:
		return v.dict.Len()
	case KindRange:
		items, _ := v.rangeItems()
		return len(items)
	default:
		return 0
	}
}

func (v Value) AsArray() []Value {
	if v.kind == KindArray {
		return v.array
	}
	return v.Iterate()
}

func (v Value) AsFunction() (Function, bool) {
	if v.kind == KindFunction {
		return v.fn, true
	}
	return nil, false
}

// CompareNatural orders two values for sort/sort_natural: numeric
// comparison when both sides are numeric, otherwise case-sensitive
// (sort) or case-insensitive (sort_natural) string comparison.
func CompareNatural(a, b Value, caseInsensitive bool) int {
	if isNumeric(a) && isNumeric(b) {
		an, bn := a.ToNumber(), b.ToNumber()
		cmp, err := an.number.Cmp(bn.number)
		if err == nil {
			return cmp
		}
	}
	as, bs := a.ToString(), b.ToString()
	if caseInsensitive {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return strings.Compare(as, bs)
}

// Less implements the ordering used by <, <=, >, >= — numeric when
// possible, else lexicographic string comparison.
func Less(a, b Value) (int, bool) {
	if isNumeric(a) && isNumeric(b) {
		an, bn := a.ToNumber(), b.ToNumber()
		cmp, err := an.number.Cmp(bn.number)
		if err != nil {
			return 0, false
		}
		return cmp, true
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.str, b.str), true
	}
	if a.kind == KindDateTime && b.kind == KindDateTime {
		switch {
		case a.datetime.Before(b.datetime):
			return -1, true
		case a.datetime.After(b.datetime):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func (v Value) DictMap() *orderedmap.OrderedMap[string, Value] {
	if v.kind == KindDict {
		return v.dict
	}
	return nil
}

func (v Value) Time() (time.Time, bool) {
	if v.kind == KindDateTime {
		return v.datetime, true
	}
	return time.Time{}, false
}

// SortArray returns a new sorted copy of an array Value.
func SortArray(v Value, natural bool) Value {
	items := append([]Value(nil), v.AsArray()...)
	sort.SliceStable(items, func(i, j int) bool {
		return CompareNatural(items[i], items[j], natural) < 0
	})
	return Array(items)
}
