package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "DYNAMIC-CLASS-LOAD",
		Summary:  "Class loaded by a name computed at run time.",
		Category: ir.CategoryReflection,
		Severity: ir.SeverityWarning,
		Check:    checkDynamicClassLoad,
	})
}

func checkDynamicClassLoad(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		forName := c.Callee == "forName" && c.ReceiverType == "Class"
		loadClass := c.Callee == "loadClass" && c.Receiver != nil
		if (!forName && !loadClass) || len(c.Args) == 0 {
			continue
		}
		if reaching(in, c.Args[0], c.Scope.Method, c.Span.Start).IsStringLiteral() {
			continue
		}
		out = append(out, hit(c.Site,
			"Map the input to an allow-list of known classes.",
			"%s loads a class whose name is not a constant", c.Callee))
	}
	return out
}
