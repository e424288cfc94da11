package rules

import (
	"strings"
	"unicode/utf8"

	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "HARDCODED-SECRET",
		Summary:  "Secret-like name assigned a long or high-entropy string literal.",
		Category: ir.CategoryInfoDisclosure,
		Severity: ir.SeverityError,
		Check:    checkHardcodedSecret,
	})
}

const (
	secretMinLength  = 24
	secretMinShort   = 8
	secretMinEntropy = 3.0
)

var secretWords = []string{"PASSWORD", "PASSWD", "PWD", "SECRET", "TOKEN", "KEY", "CREDENTIAL"}

func checkHardcodedSecret(in *Input) []Hit {
	var out []Hit
	for _, a := range facts.All[facts.Assign](in.Facts) {
		if a.Op != "=" || !a.Value.IsStringLiteral() || !secretName(a.Target.Name) {
			continue
		}
		if !secretLiteral(a.Value.Text) {
			continue
		}
		out = append(out, hit(a.Site,
			"Load the value from the environment or a secret store.",
			"%s holds a hard-coded secret literal", a.Target.Name))
	}
	return out
}

func secretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, w := range secretWords {
		if strings.Contains(upper, w) {
			return true
		}
	}
	return false
}

func secretLiteral(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= secretMinLength || (n >= secretMinShort && entropy(s) >= secretMinEntropy)
}
