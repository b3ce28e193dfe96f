package ast

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/codingersid/legit-liquid/value"
)

// formatOutput renders v the way an {{ output }} statement writes it:
// locale-neutral (preserving Number scale exactly, per spec.md §8) for
// the default culture, and through a culture-aware printer otherwise
// (spec.md §6's culture option), which affects only grouping/decimal
// marks, never the preserved scale used by equality and round-tripping.
func formatOutput(v value.Value, culture language.Tag) string {
	if v.Kind() != value.KindNumber || culture == language.Und {
		return v.ToString()
	}
	p := message.NewPrinter(culture)
	d := v.Decimal()
	f, _ := d.Float64()
	scale := 0
	if d.Exponent < 0 {
		scale = int(-d.Exponent)
	}
	return p.Sprintf("%.*f", scale, f)
}
