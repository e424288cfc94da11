// Package report merges engine results into the versioned finding report and
// renders it.
package report

import (
	"sort"

	"factlint/internal/engine"
	"factlint/internal/ir"
)

// LineRange is an inclusive range of lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r LineRange) contains(line int) bool { return line >= r.Start && line <= r.End }

// Filter narrows a report. Zero fields do not filter.
type Filter struct {
	MinSeverity ir.Severity
	Categories  []ir.Category
	Rules       []string
	// Regions keeps only findings inside the given line ranges of each
	// unit. A nil map keeps everything; units missing from a non-nil map
	// are dropped.
	Regions map[string][]LineRange
}

func (f Filter) keep(fd ir.Finding) bool {
	if fd.Severity < f.MinSeverity {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, fd.Category) {
		return false
	}
	if len(f.Rules) > 0 && !contains(f.Rules, fd.RuleID) {
		return false
	}
	if f.Regions != nil {
		for _, r := range f.Regions[fd.Location.Unit] {
			if r.contains(fd.Location.Line) {
				return true
			}
		}
		return false
	}
	return true
}

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Summary counts what the report holds.
type Summary struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	BySeverity map[string]int `json:"by_severity"`
	Faults     map[string]int `json:"faults"`
	Units      int            `json:"units"`
	Skipped    int            `json:"skipped"`
	Cancelled  bool           `json:"cancelled,omitempty"`
}

// Degraded reports whether some part of the input was not fully analyzed.
func (s Summary) Degraded() bool {
	return s.Cancelled || s.Skipped > 0 || len(s.Faults) > 0
}

// Report is the ordered, filtered set of findings of one or more engine
// results.
type Report struct {
	Version  string       `json:"version"`
	Findings []ir.Finding `json:"findings"`
	Faults   []ir.Fault   `json:"faults,omitempty"`
	Summary  Summary      `json:"summary"`
}

// Aggregate merges results, drops duplicate findings, applies f and orders
// the findings by unit, offset and rule.
func Aggregate(f Filter, results ...*engine.Result) *Report {
	rep := &Report{
		Version:  ir.Version,
		Findings: []ir.Finding{},
		Summary: Summary{
			ByCategory: map[string]int{},
			BySeverity: map[string]int{},
			Faults:     map[string]int{},
		},
	}

	seen := map[ir.Key]bool{}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, fd := range res.Findings {
			if seen[fd.Key()] || !f.keep(fd) {
				continue
			}
			seen[fd.Key()] = true
			rep.Findings = append(rep.Findings, fd)
		}
		rep.Faults = append(rep.Faults, res.Faults...)
		rep.Summary.Units += len(res.Units)
		rep.Summary.Skipped += res.Skipped
		rep.Summary.Cancelled = rep.Summary.Cancelled || res.Cancelled
	}
	sort.SliceStable(rep.Findings, func(i, j int) bool { return ir.Less(rep.Findings[i], rep.Findings[j]) })

	for _, fd := range rep.Findings {
		rep.Summary.ByCategory[string(fd.Category)]++
		rep.Summary.BySeverity[fd.Severity.String()]++
	}
	for _, ft := range rep.Faults {
		rep.Summary.Faults[string(ft.Kind)]++
	}
	rep.Summary.Total = len(rep.Findings)
	return rep
}

// Records flattens the findings into interchange records.
func (r *Report) Records() []ir.Record {
	out := make([]ir.Record, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Record())
	}
	return out
}

// MaxSeverity is the highest severity among the findings, or zero.
func (r *Report) MaxSeverity() ir.Severity {
	var max ir.Severity
	for _, f := range r.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}
