package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "SQL-STRING-QUERY",
		Summary:  "SQL query built by string concatenation.",
		Category: ir.CategoryInjection,
		Severity: ir.SeverityError,
		Check:    checkSQLStringQuery,
	})
}

var queryCalls = set(
	"executeQuery", "executeUpdate", "executeLargeUpdate", "execute", "addBatch",
	"prepareStatement", "prepareCall", "nativeSQL",
	"createQuery", "createNativeQuery", "createSQLQuery",
	"queryForList", "queryForObject", "queryForMap", "queryForRowSet", "batchUpdate",
)

// checkSQLStringQuery looks at the first argument of query APIs, directly or
// through the local it was last assigned from.
func checkSQLStringQuery(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if !queryCalls[c.Callee] || c.Receiver == nil || len(c.Args) == 0 {
			continue
		}
		arg := reaching(in, c.Args[0], c.Scope.Method, c.Span.Start)
		if arg.Kind != facts.ValConcat || !arg.Dynamic {
			continue
		}
		out = append(out, hit(c.Site,
			"Use a PreparedStatement with ? placeholders and bind the values.",
			"query passed to %s is built by concatenating non-literal values", c.Callee))
	}
	return out
}
