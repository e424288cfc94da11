package rules

import (
	"strings"

	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "WEAK-CIPHER",
		Summary:  "Broken cipher, mode or digest algorithm requested.",
		Category: ir.CategoryWeakCrypto,
		Severity: ir.SeverityError,
		Check:    checkWeakCipher,
	})
	register(Rule{
		ID:       "WEAK-RANDOM",
		Summary:  "Predictable random number generator.",
		Category: ir.CategoryWeakCrypto,
		Severity: ir.SeverityInfo,
		Check:    checkWeakRandom,
	})
}

var cryptoFactories = set("Cipher", "MessageDigest", "KeyGenerator", "SecretKeyFactory", "Mac", "Signature")

var weakAlgorithms = []struct{ pattern, reason string }{
	{"/ECB/", "ECB mode leaks plaintext structure"},
	{"DES", "DES keys are too short"},
	{"RC2", "RC2 is broken"},
	{"RC4", "RC4 is broken"},
	{"ARCFOUR", "RC4 is broken"},
	{"BLOWFISH", "Blowfish has a 64-bit block"},
	{"MD2", "MD2 is broken"},
	{"MD4", "MD4 is broken"},
	{"MD5", "MD5 is broken"},
	{"SHA1", "SHA-1 is broken"},
}

func checkWeakCipher(in *Input) []Hit {
	var out []Hit
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if c.Callee != "getInstance" || !cryptoFactories[c.ReceiverType] || len(c.Args) == 0 {
			continue
		}
		alg := reaching(in, c.Args[0], c.Scope.Method, c.Span.Start)
		if !alg.IsStringLiteral() {
			continue
		}
		if why := weakAlgorithm(alg.Text); why != "" {
			out = append(out, hit(c.Site,
				"Use AES/GCM/NoPadding for encryption and SHA-256 or stronger for digests.",
				"%s.getInstance(%q): %s", c.ReceiverType, alg.Text, why))
		}
	}
	return out
}

func weakAlgorithm(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "AES" {
		return "defaults to ECB mode"
	}
	normalized := "/" + strings.ReplaceAll(upper, "-", "") + "/"
	if normalized == "/SHA/" {
		return "SHA-1 is broken"
	}
	// RSA takes a single block; its ECB mode name is nominal.
	rsa := strings.HasPrefix(upper, "RSA/")
	for _, w := range weakAlgorithms {
		if rsa && w.pattern == "/ECB/" {
			continue
		}
		if strings.Contains(normalized, w.pattern) {
			return w.reason
		}
	}
	return ""
}

func checkWeakRandom(in *Input) []Hit {
	const fix = "Use java.security.SecureRandom for tokens, keys and nonces."
	var out []Hit
	for _, n := range facts.All[facts.NewObject](in.Facts) {
		if n.Type == "Random" {
			out = append(out, hit(n.Site, fix, "java.util.Random is predictable"))
		}
	}
	for _, c := range facts.All[facts.CallSite](in.Facts) {
		if c.Callee == "random" && c.ReceiverType == "Math" {
			out = append(out, hit(c.Site, fix, "Math.random() is predictable"))
		}
	}
	return out
}
