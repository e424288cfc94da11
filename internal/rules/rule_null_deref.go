package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "NULL-DEREF",
		Summary:  "Variable assigned null is dereferenced later in the same block.",
		Category: ir.CategoryNullSafety,
		Severity: ir.SeverityError,
		Check:    checkNullDeref,
	})
}

// checkNullDeref pairs each null definition with the first dereference of
// the same symbol in the same block. An assignment to the symbol between the
// two discharges the definition, and so does a null test paired with a
// return or throw (if (s == null) return;). A null test alone does not.
func checkNullDeref(in *Input) []Hit {
	derefs := facts.All[facts.Deref](in.Facts)
	compares := facts.All[facts.Compare](in.Facts)
	var out []Hit
	for _, def := range facts.All[facts.Assign](in.Facts) {
		if def.Op != "=" || def.Value.Kind != facts.ValNull || def.Target.IsField() || !def.Target.Valid() {
			continue
		}
		m := in.Flow.Of(def.Site)
		if m == nil {
			continue
		}
		for _, d := range derefs {
			if d.Symbol != def.Target || d.Span.Start < def.Span.End {
				continue
			}
			if d.Scope.Block != def.Scope.Block || d.Scope.Lambda != def.Scope.Lambda {
				continue
			}
			from, to := def.Span.End, d.Span.Start
			guarded := m.ExitBetween(from, to, def.Scope.Lambda) && nullTested(compares, def.Target, from, to)
			if !guarded && !m.AssignedBetween(def.Target, def.Span.Start, to) {
				out = append(out, hit(d.Site,
					"Assign a non-null value before use or guard the dereference.",
					"%s is always null here; calling %s on it throws NullPointerException", def.Target.Name, d.Member))
			}
			break
		}
	}
	return out
}

func nullTested(compares []facts.Compare, sym facts.Symbol, from, to int) bool {
	for _, c := range compares {
		if c.Span.Start < from || c.Span.Start >= to {
			continue
		}
		if (c.Left.Symbol == sym && c.Right.Kind == facts.ValNull) || (c.Right.Symbol == sym && c.Left.Kind == facts.ValNull) {
			return true
		}
	}
	return false
}
