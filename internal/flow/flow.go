// Package flow derives per-method control-flow summaries from a frozen fact
// table. Summaries are positional: they answer "does X occur between these
// two offsets of the same method" rather than modelling full paths.
package flow

import (
	"factlint/internal/facts"
	"factlint/internal/graph"
)

// Method summarizes one method body.
type Method struct {
	Decl     facts.MethodDecl
	Branches []facts.Branch
	Exits    []facts.Exit
	Calls    []facts.CallSite
	News     []facts.NewObject
	Assigns  []facts.Assign

	self []facts.CallSite
}

// Summary is the flow summary of one unit. It is immutable once built.
type Summary struct {
	Graph   *graph.Graph
	methods map[string]*Method
	order   []*Method
}

// Build summarizes every method of t.
func Build(t *facts.Table) *Summary {
	s := &Summary{
		Graph:   graph.NewGraph(t.Unit()),
		methods: map[string]*Method{},
	}
	for _, d := range facts.All[facts.MethodDecl](t) {
		if _, dup := s.methods[d.Key]; dup {
			continue
		}
		m := &Method{Decl: d}
		s.methods[d.Key] = m
		s.order = append(s.order, m)
		s.Graph.AddMethod(d)
	}

	for _, b := range facts.All[facts.Branch](t) {
		if m := s.methods[b.Scope.Method]; m != nil {
			m.Branches = append(m.Branches, b)
		}
	}
	for _, e := range facts.All[facts.Exit](t) {
		if m := s.methods[e.Scope.Method]; m != nil {
			m.Exits = append(m.Exits, e)
		}
	}
	for _, a := range facts.All[facts.Assign](t) {
		if m := s.methods[a.Scope.Method]; m != nil {
			m.Assigns = append(m.Assigns, a)
		}
	}

	for _, n := range facts.All[facts.NewObject](t) {
		if m := s.methods[n.Scope.Method]; m != nil {
			m.News = append(m.News, n)
		}
	}

	calls := facts.All[facts.CallSite](t)
	s.Graph.Link(calls)
	for _, c := range calls {
		m := s.methods[c.Scope.Method]
		if m == nil {
			continue
		}
		m.Calls = append(m.Calls, c)
		for _, target := range s.Graph.Resolve(c) {
			if target == m.Decl.Key {
				m.self = append(m.self, c)
				break
			}
		}
	}
	return s
}

// Method returns the summary for key, or nil.
func (s *Summary) Method(key string) *Method {
	if s == nil {
		return nil
	}
	return s.methods[key]
}

// Methods returns all summaries in declaration order.
func (s *Summary) Methods() []*Method {
	if s == nil {
		return nil
	}
	return s.order
}

// Of returns the method enclosing site, or nil for field initializers.
func (s *Summary) Of(site facts.Site) *Method {
	return s.Method(site.Scope.Method)
}

// SelfCalls returns calls from the method body to itself, excluding calls
// made inside lambdas.
func (m *Method) SelfCalls() []facts.CallSite {
	var out []facts.CallSite
	for _, c := range m.self {
		if c.Scope.Lambda == 0 {
			out = append(out, c)
		}
	}
	return out
}

// HasBranch reports whether the method body (outside lambdas) splits control
// flow.
func (m *Method) HasBranch() bool {
	for _, b := range m.Branches {
		if b.Scope.Lambda == 0 {
			return true
		}
	}
	return false
}

// ExitBetween reports a return or throw of the same lambda (0 for the method
// body) that starts after from and before to.
func (m *Method) ExitBetween(from, to, lambda int) bool {
	for _, e := range m.Exits {
		if e.Scope.Lambda == lambda && e.Span.Start > from && e.Span.Start < to {
			return true
		}
	}
	return false
}

// AssignedBetween reports an assignment to sym after from and before to.
func (m *Method) AssignedBetween(sym facts.Symbol, from, to int) bool {
	for _, a := range m.Assigns {
		if a.Target == sym && a.Span.Start > from && a.Span.Start < to {
			return true
		}
	}
	return false
}

// CallsBetween returns calls that start after from and before to.
func (m *Method) CallsBetween(from, to int) []facts.CallSite {
	var out []facts.CallSite
	for _, c := range m.Calls {
		if c.Span.Start > from && c.Span.Start < to {
			out = append(out, c)
		}
	}
	return out
}

// MayThrowBetween reports a call or constructor of the same lambda that
// starts after from and before to.
func (m *Method) MayThrowBetween(from, to, lambda int) bool {
	for _, c := range m.Calls {
		if c.Scope.Lambda == lambda && c.Span.Start > from && c.Span.Start < to {
			return true
		}
	}
	for _, n := range m.News {
		if n.Scope.Lambda == lambda && n.Span.Start > from && n.Span.Start < to {
			return true
		}
	}
	return false
}

// BaseExit reports an exit that does not contain a call back into the
// method: a throw, or a return whose expression makes no self call.
func (m *Method) BaseExit() bool {
	for _, e := range m.Exits {
		if e.Scope.Lambda != 0 {
			continue
		}
		if e.Kind == "throw" || !m.selfCallWithin(e) {
			return true
		}
	}
	return false
}

func (m *Method) selfCallWithin(e facts.Exit) bool {
	for _, c := range m.self {
		if e.Span.Contains(c.Span) {
			return true
		}
	}
	return false
}
