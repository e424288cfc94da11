package rules

import (
	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "INSECURE-DESERIALIZATION",
		Summary:  "Generic object deserialization API in use.",
		Category: ir.CategoryDeserialization,
		Severity: ir.SeverityError,
		Check:    checkInsecureDeserialization,
	})
}

var deserializers = set("readObject", "readUnshared", "fromXML", "deserialize")

// checkInsecureDeserialization fires on every call, whatever the input.
func checkInsecureDeserialization(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if !deserializers[c.Callee] || c.Receiver == nil {
			continue
		}
		out = append(out, hit(c.Site,
			"Avoid native deserialization of untrusted data or install an ObjectInputFilter allow-list.",
			"%s deserializes arbitrary object graphs", c.Callee))
	}
	return out
}
