// Package engine runs the enabled rules over parsed units. Units are spread
// over a bounded worker pool; the rules of one unit run concurrently over
// its frozen fact table. The result is deduplicated and sorted, so it does
// not depend on which worker or rule finished first.
package engine

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"factlint/internal/extractor"
	"factlint/internal/facts"
	"factlint/internal/flow"
	"factlint/internal/graph"
	"factlint/internal/ir"
	"factlint/internal/rules"
	"factlint/internal/syntax"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates a frozen registry over units.
type Engine struct {
	reg     *rules.Registry
	ext     *extractor.Extractor
	workers int
	logger  hclog.Logger
	graphs  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of units analyzed at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger; the engine logs under the "engine" name.
func WithLogger(l hclog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.Named("engine")
		}
	}
}

// WithCallGraphs keeps each unit's call graph in Result.Graphs.
func WithCallGraphs() Option {
	return func(e *Engine) { e.graphs = true }
}

// New creates an engine.
func New(reg *rules.Registry, ext *extractor.Extractor, opts ...Option) *Engine {
	e := &Engine{
		reg:     reg,
		ext:     ext,
		workers: runtime.GOMAXPROCS(0),
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one evaluation.
type Result struct {
	Findings []ir.Finding
	Faults   []ir.Fault
	// Units lists the units that were fully evaluated, in input order.
	Units []string
	// Skipped counts units excluded by a parse fault.
	Skipped int
	Rules   []string
	// Cancelled is set when evaluation stopped early; units that were
	// not finished are absent from Findings and Units.
	Cancelled bool
	Graphs    map[string]*graph.Graph
}

type outcome struct {
	unit     string
	done     bool
	skipped  bool
	findings []ir.Finding
	faults   []ir.Fault
	graph    *graph.Graph
}

// Evaluate analyzes units and returns their merged findings. When ctx is
// cancelled the partial result is returned together with ctx's error.
func (e *Engine) Evaluate(ctx context.Context, units []*syntax.Unit) (*Result, error) {
	enabled := e.reg.List()
	res := &Result{Rules: make([]string, 0, len(enabled))}
	for _, r := range enabled {
		res.Rules = append(res.Rules, r.ID)
	}
	e.logger.Debug("evaluation started", "units", len(units), "rules", len(enabled), "workers", e.workers)

	outcomes := make([]outcome, len(units))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, u := range units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = e.evaluateUnit(ctx, u, enabled)
			return nil
		})
	}
	_ = g.Wait()

	seen := map[ir.Key]bool{}
	for _, o := range outcomes {
		res.Faults = append(res.Faults, o.faults...)
		switch {
		case o.skipped:
			res.Skipped++
			continue
		case !o.done:
			res.Cancelled = true
			continue
		}
		res.Units = append(res.Units, o.unit)
		for _, f := range o.findings {
			if seen[f.Key()] {
				continue
			}
			seen[f.Key()] = true
			res.Findings = append(res.Findings, f)
		}
		if e.graphs && o.graph != nil {
			if res.Graphs == nil {
				res.Graphs = map[string]*graph.Graph{}
			}
			res.Graphs[o.unit] = o.graph
		}
	}
	sort.SliceStable(res.Findings, func(i, j int) bool { return ir.Less(res.Findings[i], res.Findings[j]) })
	sortFaults(res.Faults)

	e.logger.Info("evaluation finished",
		"units", len(res.Units), "skipped", res.Skipped, "findings", len(res.Findings),
		"faults", len(res.Faults), "cancelled", res.Cancelled)
	if res.Cancelled {
		return res, ctx.Err()
	}
	return res, nil
}

func (e *Engine) evaluateUnit(ctx context.Context, u *syntax.Unit, enabled []rules.Rule) outcome {
	out := outcome{unit: u.ID}
	if u.Err != nil || u.Root == nil {
		err := u.Err
		if err == nil {
			err = &ir.ParseFault{Unit: u.ID, Err: errors.New("no syntax tree")}
		}
		out.skipped = true
		out.faults = append(out.faults, parseFault(u.ID, err))
		e.logger.Warn("unit excluded", "unit", u.ID, "error", err)
		return out
	}

	table, summary, fault := e.prepare(u)
	if fault != nil {
		out.faults = append(out.faults, *fault)
		e.logger.Error("fact extraction failed", "unit", u.ID, "error", fault.Message)
		out.done = true
		return out
	}
	for _, m := range facts.All[facts.Malformed](table) {
		out.faults = append(out.faults, ir.Fault{
			Kind:    ir.FaultMalformed,
			Unit:    u.ID,
			Line:    m.Span.Line,
			Message: m.Reason,
		})
	}

	in := &rules.Input{Unit: u.ID, Facts: table, Flow: summary}
	found := make([][]ir.Finding, len(enabled))
	failed := make([]*ir.Fault, len(enabled))

	g := new(errgroup.Group)
	for i, r := range enabled {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found[i], failed[i] = runRule(r, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Debug("unit dropped", "unit", u.ID, "error", err)
		return outcome{unit: u.ID}
	}

	for i, f := range failed {
		if f != nil {
			e.logger.Warn("rule failed", "rule", enabled[i].ID, "unit", u.ID, "error", f.Message)
			out.faults = append(out.faults, *f)
		}
		out.findings = append(out.findings, found[i]...)
	}
	out.done = true
	out.graph = summary.Graph
	e.logger.Debug("unit evaluated", "unit", u.ID, "facts", table.Len(), "findings", len(out.findings))
	return out
}

// prepare extracts the fact table and flow summary, turning an extractor
// panic into an engine fault for the unit.
func (e *Engine) prepare(u *syntax.Unit) (table *facts.Table, summary *flow.Summary, fault *ir.Fault) {
	defer func() {
		if p := recover(); p != nil {
			f := (&ir.EngineFault{Unit: u.ID, Rule: "extractor", Cause: p}).Fault()
			table, summary, fault = nil, nil, &f
		}
	}()
	table = e.ext.Extract(u)
	return table, flow.Build(table), nil
}

func runRule(r rules.Rule, in *rules.Input) (found []ir.Finding, fault *ir.Fault) {
	defer func() {
		if p := recover(); p != nil {
			f := (&ir.EngineFault{Unit: in.Unit, Rule: r.ID, Cause: p}).Fault()
			found, fault = nil, &f
		}
	}()
	return r.Evaluate(in), nil
}

func parseFault(unit string, err error) ir.Fault {
	var pf *ir.ParseFault
	if errors.As(err, &pf) {
		return pf.Fault()
	}
	return (&ir.ParseFault{Unit: unit, Err: err}).Fault()
}

func sortFaults(fs []ir.Fault) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Rule < b.Rule
	})
}
