package rules

import (
	"fmt"
	"math"
	"strings"

	"factlint/internal/facts"
)

func hit(site facts.Site, suggestion, format string, args ...any) Hit {
	return Hit{Site: site, Message: fmt.Sprintf(format, args...), Suggestion: suggestion}
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// reaching returns the value v stands for at offset at. A local or parameter
// resolves to its last assignment before at within the same method; a
// compound += of a non-literal counts as a dynamic concatenation.
func reaching(in *Input, v facts.Value, method string, at int) facts.Value {
	if v.Kind != facts.ValIdent || !v.Symbol.Valid() || v.Symbol.IsField() {
		return v
	}
	var last *facts.Assign
	dynamic := false
	for _, a := range facts.All[facts.Assign](in.Facts) {
		if a.Span.Start >= at {
			break
		}
		if a.Target != v.Symbol || a.Scope.Method != method {
			continue
		}
		a := a
		last = &a
		switch {
		case a.Op == "=":
			dynamic = false
		case a.Op == "+=" && a.Value.Kind != facts.ValLiteral:
			dynamic = true
		}
	}
	if last == nil {
		return v
	}
	if dynamic {
		return facts.Value{Kind: facts.ValConcat, Type: "String", Dynamic: true, Span: last.Span}
	}
	if last.Op != "=" {
		return v
	}
	return last.Value
}

// ValueAt resolves v as seen from site, following locals back to their
// reaching assignment.
func (in *Input) ValueAt(v facts.Value, site facts.Site) facts.Value {
	return reaching(in, v, site.Scope.Method, site.Span.Start)
}

// Built reports a string assembled from at least one non-literal part.
func Built(v facts.Value) bool {
	return (v.Kind == facts.ValConcat || v.Kind == facts.ValArray) && v.Dynamic
}

// valueTypes are compared by identity only by mistake.
var valueTypes = set(
	"String", "Integer", "Long", "Short", "Byte", "Character", "Boolean",
	"Double", "Float", "BigDecimal", "BigInteger",
)

// threadSafeTypes may be written from several tasks without a guard.
var threadSafeTypes = set(
	"Vector", "Hashtable", "StringBuffer", "ThreadLocal",
	"LinkedBlockingQueue", "ArrayBlockingQueue", "PriorityBlockingQueue",
	"LinkedBlockingDeque", "DelayQueue", "SynchronousQueue", "LinkedTransferQueue",
)

func threadSafe(typ string) bool {
	return threadSafeTypes[typ] ||
		strings.HasPrefix(typ, "Concurrent") ||
		strings.HasPrefix(typ, "Atomic") ||
		strings.HasPrefix(typ, "CopyOnWrite")
}

// entropy is the Shannon entropy of s in bits per rune.
func entropy(s string) float64 {
	counts := map[rune]int{}
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	if n == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// fieldDecls indexes field declarations by symbol.
func fieldDecls(in *Input) map[facts.Symbol]facts.FieldDecl {
	out := map[facts.Symbol]facts.FieldDecl{}
	for _, f := range facts.All[facts.FieldDecl](in.Facts) {
		out[f.Symbol] = f
	}
	return out
}

func describe(v facts.Value) string {
	if v.Text != "" {
		return v.Text
	}
	return "expression"
}
