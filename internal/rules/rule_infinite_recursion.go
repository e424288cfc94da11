package rules

import (
	"factlint/internal/facts"
	"factlint/internal/flow"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "INFINITE-RECURSION",
		Summary:  "Recursive call that can never reach a base case.",
		Category: ir.CategoryCorrectness,
		Severity: ir.SeverityError,
		Check:    checkInfiniteRecursion,
	})
}

// checkInfiniteRecursion flags a self call that passes the method's own
// parameters through unchanged (the recursion repeats the same state), or
// a self call in a method with no branch and no exit that avoids recursing.
func checkInfiniteRecursion(in *Input) []Hit {
	var out []Hit
	for _, m := range in.Flow.Methods() {
		calls := m.SelfCalls()
		if len(calls) == 0 {
			continue
		}
		if !m.HasBranch() && !m.BaseExit() {
			out = append(out, hit(calls[0].Site,
				"Add a base case that returns without recursing.",
				"%s calls itself on every path", m.Decl.Name))
			continue
		}
		for _, c := range calls {
			if sameState(m, c) {
				out = append(out, hit(c.Site,
					"Pass a value that moves toward the base case.",
					"%s calls itself with unchanged arguments", m.Decl.Name))
				break
			}
		}
	}
	return out
}

func sameState(m *flow.Method, c facts.CallSite) bool {
	params := m.Decl.Params
	if len(params) == 0 || len(c.Args) != len(params) {
		return false
	}
	for i, a := range c.Args {
		if a.Kind != facts.ValIdent || a.Symbol != params[i] {
			return false
		}
	}
	for _, a := range m.Assigns {
		for _, p := range params {
			if a.Target == p {
				return false
			}
		}
	}
	return true
}
