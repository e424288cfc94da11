package rules

import (
	"factlint/internal/facts"
	"factlint/internal/flow"
	"factlint/internal/ir"
)

// Input is what a rule sees of one unit. Both fields are frozen and shared
// by all rules running on the unit.
type Input struct {
	Unit  string
	Facts *facts.Table
	Flow  *flow.Summary
}

// Hit is one place a rule fires.
type Hit struct {
	Site       facts.Site
	Message    string
	Suggestion string
}

// Rule is a detection predicate plus its metadata.
type Rule struct {
	ID       string
	Summary  string
	Category ir.Category
	Severity ir.Severity
	// Check inspects one unit and returns where the rule fires. It must not
	// modify its input and returns nil when the facts it needs are absent.
	Check func(in *Input) []Hit
}

// Evaluate runs the rule over in and stamps each hit with the rule's
// metadata.
func (r Rule) Evaluate(in *Input) []ir.Finding {
	hits := r.Check(in)
	if len(hits) == 0 {
		return nil
	}
	out := make([]ir.Finding, 0, len(hits))
	for _, h := range hits {
		span := h.Site.Span
		out = append(out, ir.Finding{
			ID:       ir.Fingerprint(r.ID, in.Unit, span.Start),
			RuleID:   r.ID,
			Severity: r.Severity,
			Category: r.Category,
			Location: ir.Location{
				Unit:   in.Unit,
				Offset: span.Start,
				End:    span.End,
				Line:   span.Line,
				Column: span.Column,
			},
			Message:    h.Message,
			Suggestion: h.Suggestion,
		})
	}
	return out
}
