package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "REF-EQUALITY",
		Summary:  "Boxed or immutable value types compared with == or !=.",
		Category: ir.CategoryCorrectness,
		Severity: ir.SeverityWarning,
		Check:    checkRefEquality,
	})
}

func checkRefEquality(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.Compare](in.Facts) {
		if c.Left.Kind == facts.ValNull || c.Right.Kind == facts.ValNull {
			continue
		}
		if !valueTypes[c.Left.Type] || !valueTypes[c.Right.Type] {
			continue
		}
		out = append(out, hit(c.Site,
			"Compare with equals() (or Objects.equals for nullable operands).",
			"%s %s %s compares %s references, not values", describe(c.Left), c.Op, describe(c.Right), c.Left.Type))
	}
	return out
}
