package filter

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/osteele/tuesday"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/codingersid/legit-liquid/value"
)

func registerBuiltins(r *Registry) {
	dc := value.DecimalContext()

	unary := func(name string, op func(d *apd.Decimal) *apd.Decimal) {
		r.Register(name, func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
			return value.NumberFromDecimal(op(in.ToNumber().Decimal())), nil
		})
	}

	unary("abs", func(d *apd.Decimal) *apd.Decimal {
		out := new(apd.Decimal)
		dc.Abs(out, d)
		return out
	})
	unary("ceil", func(d *apd.Decimal) *apd.Decimal {
		out := new(apd.Decimal)
		dc.Ceil(out, d)
		return out
	})
	unary("floor", func(d *apd.Decimal) *apd.Decimal {
		out := new(apd.Decimal)
		dc.Floor(out, d)
		return out
	})

	r.Register("round", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		d := in.ToNumber().Decimal()
		if len(args) == 0 {
			out := new(apd.Decimal)
			dc.RoundToIntegralValue(out, d)
			return value.NumberFromDecimal(out), nil
		}
		places := int32(args[0].ToInt64())
		out := new(apd.Decimal)
		rc := dc.WithPrecision(dc.Precision)
		rc.Rounding = apd.RoundHalfUp
		_, _ = rc.Quantize(out, d, -places)
		return value.NumberFromDecimal(out), nil
	})

	binaryMath := func(name string, op func(out, a, b *apd.Decimal) (*apd.Decimal, error)) {
		r.Register(name, func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
			if len(args) == 0 {
				return in, nil
			}
			out := new(apd.Decimal)
			res, err := op(out, in.ToNumber().Decimal(), args[0].ToNumber().Decimal())
			if err != nil {
				return value.Nil, err
			}
			return value.NumberFromDecimal(res), nil
		})
	}
	binaryMath("plus", func(out, a, b *apd.Decimal) (*apd.Decimal, error) { _, err := dc.Add(out, a, b); return out, err })
	binaryMath("minus", func(out, a, b *apd.Decimal) (*apd.Decimal, error) { _, err := dc.Sub(out, a, b); return out, err })
	binaryMath("times", func(out, a, b *apd.Decimal) (*apd.Decimal, error) { _, err := dc.Mul(out, a, b); return out, err })
	binaryMath("divided_by", func(out, a, b *apd.Decimal) (*apd.Decimal, error) { _, err := dc.Quo(out, a, b); return out, err })
	binaryMath("modulo", func(out, a, b *apd.Decimal) (*apd.Decimal, error) { _, err := dc.Rem(out, a, b); return out, err })
	binaryMath("at_least", func(out, a, b *apd.Decimal) (*apd.Decimal, error) {
		if a.Cmp(b) < 0 {
			out.Set(b)
		} else {
			out.Set(a)
		}
		return out, nil
	})
	binaryMath("at_most", func(out, a, b *apd.Decimal) (*apd.Decimal, error) {
		if a.Cmp(b) > 0 {
			out.Set(b)
		} else {
			out.Set(a)
		}
		return out, nil
	})

	r.Register("default", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if in.ToBool() && !(in.Kind() == value.KindString && in.ToString() == "") {
			return in, nil
		}
		if len(args) > 0 {
			return args[0], nil
		}
		return value.Nil, nil
	})

	r.Register("size", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		return value.NumberFromInt(int64(in.Len())), nil
	})

	// string filters
	strFilter := func(name string, op func(s string) string) {
		r.Register(name, func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
			return value.String(op(in.ToString())), nil
		})
	}
	strFilter("upcase", strings.ToUpper)
	strFilter("downcase", strings.ToLower)
	strFilter("strip", strings.TrimSpace)
	strFilter("lstrip", func(s string) string { return strings.TrimLeft(s, " \t\r\n") })
	strFilter("rstrip", func(s string) string { return strings.TrimRight(s, " \t\r\n") })
	strFilter("strip_newlines", func(s string) string { return strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s) })
	strFilter("newline_to_br", func(s string) string { return strings.ReplaceAll(s, "\n", "<br />\n") })
	strFilter("capitalize", func(s string) string {
		if s == "" {
			return s
		}
		r := []rune(s)
		return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	})
	strFilter("url_encode", url.QueryEscape)
	strFilter("url_decode", func(s string) string {
		out, err := url.QueryUnescape(s)
		if err != nil {
			return s
		}
		return out
	})

	var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	strFilter("strip_html", func(s string) string { return htmlTagPattern.ReplaceAllString(s, "") })

	r.Register("escape", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		return value.SafeString(html.EscapeString(in.ToString())), nil
	})
	r.Register("escape_once", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		s := in.ToString()
		if s == html.EscapeString(s) {
			return value.SafeString(s), nil
		}
		unescaped := html.UnescapeString(s)
		return value.SafeString(html.EscapeString(unescaped)), nil
	})

	r.Register("append", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		return value.String(in.ToString() + args[0].ToString()), nil
	})
	r.Register("prepend", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		return value.String(args[0].ToString() + in.ToString()), nil
	})
	r.Register("remove", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		return value.String(strings.ReplaceAll(in.ToString(), args[0].ToString(), "")), nil
	})
	r.Register("remove_first", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		return value.String(strings.Replace(in.ToString(), args[0].ToString(), "", 1)), nil
	})
	r.Register("replace", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) < 2 {
			return in, nil
		}
		return value.String(strings.ReplaceAll(in.ToString(), args[0].ToString(), args[1].ToString())), nil
	})
	r.Register("replace_first", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) < 2 {
			return in, nil
		}
		return value.String(strings.Replace(in.ToString(), args[0].ToString(), args[1].ToString(), 1)), nil
	})

	r.Register("truncate", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		s := in.ToString()
		n := 50
		if len(args) > 0 {
			n = int(args[0].ToInt64())
		}
		suffix := "..."
		if len(args) > 1 {
			suffix = args[1].ToString()
		}
		r := []rune(s)
		if len(r) <= n {
			return value.String(s), nil
		}
		cut := n - len([]rune(suffix))
		if cut < 0 {
			cut = 0
		}
		return value.String(string(r[:cut]) + suffix), nil
	})
	r.Register("truncatewords", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		words := strings.Fields(in.ToString())
		n := 15
		if len(args) > 0 {
			n = int(args[0].ToInt64())
		}
		suffix := "..."
		if len(args) > 1 {
			suffix = args[1].ToString()
		}
		if len(words) <= n {
			return value.String(in.ToString()), nil
		}
		return value.String(strings.Join(words[:n], " ") + suffix), nil
	})

	r.Register("split", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		sep := ""
		if len(args) > 0 {
			sep = args[0].ToString()
		}
		var parts []string
		if sep == "" {
			parts = strings.Split(in.ToString(), "")
		} else {
			parts = strings.Split(in.ToString(), sep)
		}
		out := lo.Map(parts, func(s string, _ int) value.Value { return value.String(s) })
		return value.Array(out), nil
	})
	r.Register("join", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		sep := " "
		if len(args) > 0 {
			sep = args[0].ToString()
		}
		parts := lo.Map(in.AsArray(), func(v value.Value, _ int) string { return v.ToString() })
		return value.String(strings.Join(parts, sep)), nil
	})

	r.Register("first", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		items := in.AsArray()
		if len(items) == 0 {
			return value.Nil, nil
		}
		return items[0], nil
	})
	r.Register("last", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		items := in.AsArray()
		if len(items) == 0 {
			return value.Nil, nil
		}
		return items[len(items)-1], nil
	})
	r.Register("reverse", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		items := append([]value.Value(nil), in.AsArray()...)
		out := lo.Reverse(items)
		return value.Array(out), nil
	})
	r.Register("sort", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		return value.SortArray(in, false), nil
	})
	r.Register("sort_natural", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		return value.SortArray(in, true), nil
	})
	r.Register("uniq", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		out := lo.UniqBy(in.AsArray(), func(v value.Value) string { return v.ToString() })
		return value.Array(out), nil
	})
	r.Register("compact", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		out := lo.Filter(in.AsArray(), func(v value.Value, _ int) bool { return !v.IsNil() })
		return value.Array(out), nil
	})
	r.Register("concat", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		out := append([]value.Value(nil), in.AsArray()...)
		out = append(out, args[0].AsArray()...)
		return value.Array(out), nil
	})
	r.Register("map", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		key := args[0].ToString()
		out := lo.Map(in.AsArray(), func(v value.Value, _ int) value.Value { return v.GetMember(key) })
		return value.Array(out), nil
	})
	r.Register("where", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		key := args[0].ToString()
		var out []value.Value
		for _, v := range in.AsArray() {
			m := v.GetMember(key)
			if len(args) > 1 {
				if m.Equals(args[1]) {
					out = append(out, v)
				}
			} else if m.ToBool() {
				out = append(out, v)
			}
		}
		return value.Array(out), nil
	})
	r.Register("slice", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		items := in.AsArray()
		start := int(args[0].ToInt64())
		if start < 0 {
			start = len(items) + start
		}
		if start < 0 {
			start = 0
		}
		if start > len(items) {
			start = len(items)
		}
		length := 1
		if len(args) > 1 {
			length = int(args[1].ToInt64())
		}
		end := start + length
		if end > len(items) {
			end = len(items)
		}
		if end < start {
			end = start
		}
		return value.Array(items[start:end]), nil
	})
	r.Register("times", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		if len(args) == 0 {
			return in, nil
		}
		out := new(apd.Decimal)
		_, err := dc.Mul(out, in.ToNumber().Decimal(), args[0].ToNumber().Decimal())
		if err != nil {
			return value.Nil, err
		}
		return value.NumberFromDecimal(out), nil
	})

	r.Register("date", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		t, ok := in.Time()
		if !ok {
			n := in.ToString()
			if n == "now" || n == "today" {
				t = ctx.Now()
			} else {
				return value.String(n), nil
			}
		}
		t = t.In(ctx.Timezone())
		format := "%Y-%m-%d"
		if len(args) > 0 {
			format = args[0].ToString()
		}
		out, err := tuesday.Strftime(format, t)
		if err != nil {
			return value.Nil, err
		}
		return value.String(out), nil
	})

	// to_number / to_string coercion helpers, grounded in spf13/cast.
	r.Register("to_number", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		f, err := cast.ToFloat64E(in.ToObject())
		if err != nil {
			return in.ToNumber(), nil
		}
		return value.NumberFromFloat(f), nil
	})
	r.Register("to_string", func(in value.Value, args []value.Value, named map[string]value.Value, ctx Context) (value.Value, error) {
		return value.String(cast.ToString(in.ToObject())), nil
	})
}
