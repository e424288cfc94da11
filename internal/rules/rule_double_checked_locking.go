package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "DOUBLE-CHECKED-LOCKING",
		Summary:  "Lazy initialization checked twice around a lock on a non-volatile field.",
		Category: ir.CategoryConcurrency,
		Severity: ir.SeverityWarning,
		Check:    checkDoubleCheckedLocking,
	})
}

// checkDoubleCheckedLocking needs, within one method, a null test of the
// field outside the lock, another inside it, and a guarded write.
func checkDoubleCheckedLocking(in *Input) []Hit {
	type state struct {
		outer, inner *facts.Compare
		written      bool
		volatile     bool
	}
	type key struct {
		method string
		field  facts.Symbol
	}
	seen := map[key]*state{}
	var order []key

	at := func(k key) *state {
		s, ok := seen[k]
		if !ok {
			s = &state{}
			seen[k] = s
			order = append(order, k)
		}
		return s
	}

	for _, c := range facts.All[facts.Compare](in.Facts) {
		field, ok := nullTestedField(c)
		if !ok || c.Scope.Method == "" {
			continue
		}
		c := c
		s := at(key{c.Scope.Method, field})
		switch {
		case !c.Scope.Guarded && s.outer == nil:
			s.outer = &c
		case c.Scope.Guarded && s.outer != nil && s.inner == nil:
			s.inner = &c
		}
	}
	for _, w := range facts.All[facts.FieldWrite](in.Facts) {
		s, ok := seen[key{w.Scope.Method, w.Field}]
		if !ok || !w.Scope.Guarded || s.inner == nil || w.Span.Start < s.inner.Span.Start {
			continue
		}
		s.written = true
		s.volatile = s.volatile || w.Volatile
	}

	var out []Hit
	for _, k := range order {
		s := seen[k]
		if s.outer == nil || s.inner == nil || !s.written || s.volatile {
			continue
		}
		out = append(out, hit(s.outer.Site,
			"Declare the field volatile or use a holder class.",
			"double-checked locking on non-volatile field %s may publish a partially built object", k.field.Name))
	}
	return out
}

func nullTestedField(c facts.Compare) (facts.Symbol, bool) {
	switch {
	case c.Right.Kind == facts.ValNull && c.Left.Symbol.IsField():
		return c.Left.Symbol, true
	case c.Left.Kind == facts.ValNull && c.Right.Symbol.IsField():
		return c.Right.Symbol, true
	}
	return facts.Symbol{}, false
}
