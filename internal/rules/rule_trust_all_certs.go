package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
	"factlint/internal/syntax"
)

func init() {
	register(Rule{
		ID:       "TRUST-ALL-CERTS",
		Summary:  "TLS certificate or hostname verification disabled.",
		Category: ir.CategoryWeakCrypto,
		Severity: ir.SeverityError,
		Check:    checkTrustAllCerts,
	})
}

var trustChecks = set("checkServerTrusted", "checkClientTrusted")

func checkTrustAllCerts(in *Input) []Hit {
	var out []Hit
	for _, m := range facts.All[facts.MethodDecl](in.Facts) {
		switch {
		case trustChecks[m.Name] && m.EmptyBody:
			out = append(out, hit(m.Site,
				"Delegate to the default TrustManager or pin the expected certificate.",
				"%s accepts every certificate chain", m.Name))
		case m.Name == "verify" && len(m.Params) == 2 && alwaysTrue(in, m.Key):
			out = append(out, hit(m.Site,
				"Use the default HostnameVerifier.",
				"HostnameVerifier.verify accepts every host name"))
		}
	}
	return out
}

// alwaysTrue reports a method whose body is a single unconditional
// return true.
func alwaysTrue(in *Input, key string) bool {
	m := in.Flow.Method(key)
	if m == nil || m.HasBranch() || len(m.Exits) != 1 {
		return false
	}
	v := m.Exits[0].Value
	return v != nil && v.Kind == facts.ValLiteral && v.Lit == syntax.LitBool && v.Text == "true"
}
