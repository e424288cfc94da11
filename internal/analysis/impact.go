package analysis

import (
	"path/filepath"
	"sort"
	"strings"

	"factlint/internal/git"
	"factlint/internal/graph"
	"factlint/internal/report"
	"factlint/internal/retrieval"
)

// ImpactReport lists the methods touched by a change and the methods that
// call them.
type ImpactReport struct {
	DirectlyAffected   []*graph.Node
	IndirectlyAffected []*graph.Node
	// Loose holds changed lines outside any method, per unit.
	Loose map[string][]int
	// Units are the analyzed units the change touches, in diff order.
	Units []string
}

// Analyzer performs impact analysis over per-unit call graphs.
type Analyzer struct {
	graphs map[string]*graph.Graph
	cfg    retrieval.Config
}

// NewAnalyzer creates an analyzer over graphs keyed by unit ID. Only direct
// callers count as affected until WithMaxHops widens it.
func NewAnalyzer(graphs map[string]*graph.Graph) *Analyzer {
	return &Analyzer{graphs: graphs, cfg: retrieval.DefaultConfig()}
}

// WithMaxHops sets how many call levels above a changed method are affected.
func (a *Analyzer) WithMaxHops(n int) *Analyzer {
	a.cfg.MaxHops = n
	return a
}

// AnalyzeImpact maps each changed line to its innermost enclosing method.
// Methods of the same unit that reach them within the configured hops are
// indirectly affected.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	rep := &ImpactReport{Loose: map[string][]int{}}
	seenDirect := map[*graph.Node]bool{}

	for _, change := range changes {
		unit, g := a.graphFor(change.Path)
		if g == nil {
			continue
		}
		rep.Units = append(rep.Units, unit)
		for _, line := range change.ChangedLines {
			node := g.Enclosing(line)
			if node == nil {
				rep.Loose[unit] = append(rep.Loose[unit], line)
				continue
			}
			if !seenDirect[node] {
				seenDirect[node] = true
				rep.DirectlyAffected = append(rep.DirectlyAffected, node)
			}
		}
	}

	seeds := map[string][]string{}
	var units []string
	for _, node := range rep.DirectlyAffected {
		if _, ok := seeds[node.Unit]; !ok {
			units = append(units, node.Unit)
		}
		seeds[node.Unit] = append(seeds[node.Unit], node.Key)
	}
	for _, unit := range units {
		g := a.graphs[unit]
		for _, key := range retrieval.ExtractCallers(g, seeds[unit], a.cfg).Callers() {
			rep.IndirectlyAffected = append(rep.IndirectlyAffected, g.Nodes[key])
		}
	}
	return rep
}

// graphFor finds the graph whose unit names the diff path. Absolute diff
// paths are compared with the unit's absolute location; relative ones are
// repository-relative and match unit IDs that end with them.
func (a *Analyzer) graphFor(path string) (string, *graph.Graph) {
	var units []string
	for unit := range a.graphs {
		units = append(units, unit)
	}
	sort.Strings(units)

	if filepath.IsAbs(path) {
		want := canonical(path)
		for _, unit := range units {
			if canonical(unit) == want {
				return unit, a.graphs[unit]
			}
		}
		return "", nil
	}

	path = filepath.ToSlash(filepath.Clean(path))
	for _, unit := range units {
		id := filepath.ToSlash(filepath.Clean(unit))
		if id == path || strings.HasSuffix(id, "/"+path) {
			return unit, a.graphs[unit]
		}
	}
	return "", nil
}

// canonical resolves p against the working directory and through symlinks
// where it exists.
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Regions returns the line ranges findings must fall in to be related to
// the change: every affected method's span plus each loose line.
func (r *ImpactReport) Regions() map[string][]report.LineRange {
	out := map[string][]report.LineRange{}
	add := func(n *graph.Node) {
		end := n.Span.EndLine
		if end < n.Span.Line {
			end = n.Span.Line
		}
		out[n.Unit] = append(out[n.Unit], report.LineRange{Start: n.Span.Line, End: end})
	}
	for _, n := range r.DirectlyAffected {
		add(n)
	}
	for _, n := range r.IndirectlyAffected {
		add(n)
	}
	for unit, lines := range r.Loose {
		for _, l := range lines {
			out[unit] = append(out[unit], report.LineRange{Start: l, End: l})
		}
	}
	return out
}
