package rules

import (
	"strings"

	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "EMPTY-CATCH",
		Summary:  "Exception swallowed by an empty catch block.",
		Category: ir.CategoryErrorHandling,
		Severity: ir.SeverityWarning,
		Check:    checkEmptyCatch,
	})
	register(Rule{
		ID:       "PRINT-STACK-TRACE",
		Summary:  "Stack trace printed to the console.",
		Category: ir.CategoryInfoDisclosure,
		Severity: ir.SeverityInfo,
		Check:    checkPrintStackTrace,
	})
}

func checkEmptyCatch(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CatchBlock](in.Facts) {
		// Parameters named ignored/expected mark deliberate swallowing.
		name := strings.ToLower(c.Param)
		if !c.BodyEmpty || strings.HasPrefix(name, "ignore") || strings.HasPrefix(name, "expected") {
			continue
		}
		out = append(out, hit(c.Site,
			"Log the exception, rethrow it, or name the parameter 'ignored'.",
			"catch (%s) discards the exception", c.ExceptionType))
	}
	return out
}

func checkPrintStackTrace(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if c.Callee == "printStackTrace" && c.Receiver != nil && len(c.Args) == 0 {
			out = append(out, hit(c.Site,
				"Log through the application logger instead.",
				"printStackTrace writes internals to stderr"))
		}
	}
	return out
}
