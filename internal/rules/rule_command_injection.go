package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "COMMAND-INJECTION",
		Summary:  "OS command built from non-literal values.",
		Category: ir.CategoryInjection,
		Severity: ir.SeverityError,
		Check:    checkCommandInjection,
	})
}

func checkCommandInjection(in *Input) []Hit {
	const fix = "Pass a fixed program and validated arguments as separate array elements."
	var out []Hit

	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if !runtimeExec(c) && !(c.Callee == "command" && c.ReceiverType == "ProcessBuilder") {
			continue
		}
		for _, a := range c.Args {
			if Built(reaching(in, a, c.Scope.Method, c.Span.Start)) {
				out = append(out, hit(c.Site, fix, "command passed to %s is built from non-literal values", c.Callee))
				break
			}
		}
	}

	for _, n := range facts.All[facts.NewObject](in.Facts) {
		if n.Type != "ProcessBuilder" {
			continue
		}
		for _, a := range n.Args {
			if Built(reaching(in, a, n.Scope.Method, n.Span.Start)) {
				out = append(out, hit(n.Site, fix, "ProcessBuilder command is built from non-literal values"))
				break
			}
		}
	}
	return out
}

func runtimeExec(c facts.CallSite) bool {
	if c.Callee != "exec" || c.Receiver == nil {
		return false
	}
	return c.ReceiverType == "Runtime" || (c.Receiver.Kind == facts.ValCall && c.Receiver.Text == "getRuntime")
}
