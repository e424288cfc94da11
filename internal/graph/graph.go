package graph

import (
	"strconv"

	"factlint/internal/facts"
)

// Graph is the intraprocedural call graph of one unit: methods declared in
// the unit and the calls between them. Calls into other units or libraries
// are kept as Unresolved.
type Graph struct {
	Unit       string
	Nodes      map[string]*Node
	Edges      []Edge
	Unresolved []Unresolved

	// name/arity -> keys, Class.name/arity -> keys
	nameIndex map[string][]string
}

// NewGraph creates an empty graph for unit.
func NewGraph(unit string) *Graph {
	return &Graph{
		Unit:      unit,
		Nodes:     make(map[string]*Node),
		nameIndex: make(map[string][]string),
	}
}

// AddMethod adds a method as a node and indexes it.
func (g *Graph) AddMethod(m facts.MethodDecl) {
	if _, ok := g.Nodes[m.Key]; ok {
		return
	}
	arity := len(m.Params)
	g.Nodes[m.Key] = &Node{
		Unit:  g.Unit,
		Key:   m.Key,
		Class: m.Class,
		Name:  m.Name,
		Arity: arity,
		Span:  m.Span,
	}

	short := shortKey(m.Name, arity)
	g.nameIndex[short] = append(g.nameIndex[short], m.Key)
	qualified := m.Class + "." + short
	g.nameIndex[qualified] = append(g.nameIndex[qualified], m.Key)
}

// Link resolves calls made from inside methods to edges. Calls in field
// initializers have no source node and are ignored.
func (g *Graph) Link(calls []facts.CallSite) {
	g.Edges = g.Edges[:0]
	g.Unresolved = g.Unresolved[:0]

	for _, c := range calls {
		from := c.Scope.Method
		if _, ok := g.Nodes[from]; !ok {
			continue
		}
		targets, reason := g.resolve(c)
		if reason != "" {
			g.Unresolved = append(g.Unresolved, Unresolved{From: from, Callee: c.Callee, Reason: reason})
			continue
		}
		for _, to := range targets {
			g.Edges = append(g.Edges, Edge{From: from, To: to, Site: c.Span})
		}
	}
}

// Resolve returns the unit methods c may invoke.
func (g *Graph) Resolve(c facts.CallSite) []string {
	targets, _ := g.resolve(c)
	return targets
}

func (g *Graph) resolve(c facts.CallSite) ([]string, UnresolvedReason) {
	short := shortKey(c.Callee, len(c.Args))

	// 1. Unqualified or this.m(): the enclosing class first.
	if c.OnSelf() {
		if ids, ok := g.nameIndex[c.Scope.Class+"."+short]; ok {
			return ids, ""
		}
		// Inner and anonymous classes may call outer methods unqualified.
		ids := g.nameIndex[short]
		switch {
		case len(ids) == 1:
			return ids, ""
		case len(ids) > 1:
			return nil, ReasonAmbiguous
		}
		return nil, ReasonNoCandidate
	}

	// 2. Receiver of a known type (or a class name for static calls).
	if c.ReceiverType == "" {
		return nil, ReasonNoReceiver
	}
	if ids, ok := g.nameIndex[c.ReceiverType+"."+short]; ok {
		return ids, ""
	}
	return nil, ReasonNoCandidate
}

// Callees returns the methods key calls.
func (g *Graph) Callees(key string) []*Node {
	var out []*Node
	seen := map[string]bool{}
	for _, e := range g.Edges {
		if e.From == key && !seen[e.To] {
			seen[e.To] = true
			out = append(out, g.Nodes[e.To])
		}
	}
	return out
}

// Callers returns the methods that call key.
func (g *Graph) Callers(key string) []*Node {
	var out []*Node
	seen := map[string]bool{}
	for _, e := range g.Edges {
		if e.To == key && !seen[e.From] {
			seen[e.From] = true
			out = append(out, g.Nodes[e.From])
		}
	}
	return out
}

// Enclosing returns the innermost method whose span contains the line.
func (g *Graph) Enclosing(line int) *Node {
	var best *Node
	for _, n := range g.Nodes {
		if line < n.Span.Line || line > n.Span.EndLine {
			continue
		}
		if best == nil || n.Span.Start > best.Span.Start {
			best = n
		}
	}
	return best
}

// UnresolvedReasonCounts tallies unresolved calls by reason.
func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		counts[u.Reason]++
	}
	return counts
}

func shortKey(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}
