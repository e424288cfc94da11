package rules

import (
	"factlint/internal/facts"
	"factlint/internal/flow"
	"factlint/internal/ir"
	"factlint/internal/syntax"
)

func init() {
	register(Rule{
		ID:       "UNRELEASED-RESOURCE",
		Summary:  "Resource is not released on every exit path.",
		Category: ir.CategoryResourceLeak,
		Severity: ir.SeverityWarning,
		Check:    checkUnreleasedResource,
	})
}

// checkUnreleasedResource fires once per acquisition site. An acquisition is
// safe when it is try-with-resources, when ownership escapes (returned,
// stored in a field, wrapped), when a finally clause always releases it and
// nothing can throw before the try starts, or when the same block releases it
// with no call, constructor or exit in between. A release after the symbol is
// reassigned belongs to the new value.
func checkUnreleasedResource(in *Input) []Hit {
	released := facts.All[facts.ResourceReleased](in.Facts)
	escaped := facts.All[facts.ResourceEscaped](in.Facts)

	var out []Hit
	for _, a := range facts.All[facts.ResourceAcquired](in.Facts) {
		if a.Scoped || a.Symbol.IsField() {
			continue
		}
		m := in.Flow.Of(a.Site)
		if m == nil {
			continue
		}
		if escapes(a, escaped) || releasedOnAllPaths(a, m, released) {
			continue
		}
		out = append(out, hit(a.Site,
			"Use try-with-resources or close it in a finally block.",
			"%s opened by %s is not closed on every path", a.Symbol.Name, a.Via))
	}
	return out
}

func escapes(a facts.ResourceAcquired, escaped []facts.ResourceEscaped) bool {
	for _, e := range escaped {
		if e.Symbol == a.Symbol && e.Span.Start > a.Span.Start {
			return true
		}
	}
	return false
}

func releasedOnAllPaths(a facts.ResourceAcquired, m *flow.Method, released []facts.ResourceReleased) bool {
	limit := reassigned(a, m)
	lambda := a.Scope.Lambda
	for _, r := range released {
		if r.Symbol != a.Symbol || r.Span.Start < a.Span.Start {
			continue
		}
		if limit > 0 && r.Span.Start > limit {
			return false
		}
		if r.Always != (syntax.Span{}) {
			// Acquired inside the try itself, or before it with nothing in
			// between that can leave early.
			if r.Always.Start < a.Span.Start {
				return true
			}
			if !m.ExitBetween(a.Span.End, r.Always.Start, lambda) && !m.MayThrowBetween(a.Span.End, r.Always.Start, lambda) {
				return true
			}
			continue
		}
		if r.Scope.Block != a.Scope.Block || r.Scope.Lambda != lambda {
			continue
		}
		return !m.ExitBetween(a.Span.End, r.Span.Start, lambda) && !m.MayThrowBetween(a.Span.End, r.Span.Start, lambda)
	}
	return false
}

// reassigned returns the offset of the first later assignment to the
// acquired symbol, or 0.
func reassigned(a facts.ResourceAcquired, m *flow.Method) int {
	for _, as := range m.Assigns {
		if as.Target == a.Symbol && as.Span.Start >= a.Span.End {
			return as.Span.Start
		}
	}
	return 0
}
