package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "IGNORED-RETURN",
		Summary:  "Result of a method on an immutable value is discarded.",
		Category: ir.CategoryCorrectness,
		Severity: ir.SeverityWarning,
		Check:    checkIgnoredReturn,
	})
	register(Rule{
		ID:       "EQUALS-NO-HASHCODE",
		Summary:  "Class overrides equals without hashCode.",
		Category: ir.CategoryCorrectness,
		Severity: ir.SeverityWarning,
		Check:    checkEqualsNoHashCode,
	})
}

// pureMethods have no effect beyond their result.
var pureMethods = map[string]map[string]bool{
	"String": set(
		"replace", "replaceAll", "replaceFirst", "trim", "strip", "stripLeading", "stripTrailing",
		"toUpperCase", "toLowerCase", "substring", "concat", "repeat", "split", "intern", "formatted",
	),
	"BigDecimal": set("add", "subtract", "multiply", "divide", "negate", "abs", "pow", "setScale", "round"),
	"BigInteger": set("add", "subtract", "multiply", "divide", "negate", "abs", "pow", "mod", "shiftLeft", "shiftRight"),
}

func checkIgnoredReturn(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if c.ResultUsed || !pureMethods[c.ReceiverType][c.Callee] {
			continue
		}
		out = append(out, hit(c.Site,
			"Assign the result; "+c.ReceiverType+" values are immutable.",
			"result of %s.%s is ignored", c.ReceiverType, c.Callee))
	}
	return out
}

func checkEqualsNoHashCode(in *Input) []Hit {
	equals := map[string]facts.MethodDecl{}
	hashed := map[string]bool{}
	var classes []string
	for _, m := range facts.All[facts.MethodDecl](in.Facts) {
		switch {
		case m.Name == "equals" && len(m.Params) == 1 && m.HasBody:
			if _, ok := equals[m.Class]; !ok {
				classes = append(classes, m.Class)
				equals[m.Class] = m
			}
		case m.Name == "hashCode" && len(m.Params) == 0:
			hashed[m.Class] = true
		}
	}

	var out []Hit
	for _, class := range classes {
		if hashed[class] {
			continue
		}
		out = append(out, hit(equals[class].Site,
			"Override hashCode() consistently with equals().",
			"%s overrides equals(Object) but not hashCode()", class))
	}
	return out
}
