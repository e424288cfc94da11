// Package pipeline runs a whole analysis: discovery, parsing, rule
// evaluation, change scoping and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"factlint/internal/analysis"
	"factlint/internal/engine"
	"factlint/internal/extractor"
	"factlint/internal/frontend"
	"factlint/internal/git"
	"factlint/internal/index"
	"factlint/internal/report"
	"factlint/internal/rules"
	"factlint/internal/syntax"

	"github.com/hashicorp/go-hclog"
)

// Analysis describes one run over a set of paths.
type Analysis struct {
	Paths     []string
	Registry  *rules.Registry
	Extractor extractor.Config
	Workers   int
	Filter    report.Filter
	// ChangedSince limits the report to methods touched since this git
	// revision and their callers.
	ChangedSince string
	// ImpactHops is how many caller levels above a changed method stay in
	// scope.
	ImpactHops int
	Logger     hclog.Logger
}

// Outcome is what a run produced.
type Outcome struct {
	Result *engine.Result
	Report *report.Report
	Impact *analysis.ImpactReport
	Files  int
}

// Run executes the stages in order. On cancellation the partial outcome is
// returned along with the context error.
func (a *Analysis) Run(ctx context.Context) (*Outcome, error) {
	if a.Logger == nil {
		a.Logger = hclog.NewNullLogger()
	}
	if len(a.Paths) == 0 {
		a.Paths = []string{"."}
	}
	start := time.Now()

	units, err := a.indexStage(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Files: len(units)}

	res, evalErr := a.evaluateStage(ctx, units)
	if res == nil {
		return nil, evalErr
	}
	out.Result = res

	filter := a.Filter
	if a.ChangedSince != "" {
		if evalErr != nil {
			return nil, evalErr
		}
		impact, err := a.impactStage(ctx, res)
		if err != nil {
			return nil, err
		}
		out.Impact = impact
		filter.Regions = impact.Regions()
	}

	out.Report = report.Aggregate(filter, res)
	a.Logger.Debug("analysis complete", "files", out.Files, "findings", out.Report.Summary.Total, "elapsed", time.Since(start))
	return out, evalErr
}

func (a *Analysis) indexStage(ctx context.Context) ([]*syntax.Unit, error) {
	fe, err := frontend.New("java")
	if err != nil {
		return nil, err
	}
	units, err := index.NewIndexer(fe).BuildUnits(ctx, a.Paths, a.Workers)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("sources indexed", "files", len(units))
	return units, nil
}

func (a *Analysis) evaluateStage(ctx context.Context, units []*syntax.Unit) (*engine.Result, error) {
	opts := []engine.Option{engine.WithWorkers(a.Workers), engine.WithLogger(a.Logger)}
	if a.ChangedSince != "" {
		opts = append(opts, engine.WithCallGraphs())
	}
	eng := engine.New(a.Registry, extractor.New(a.Extractor), opts...)

	res, err := eng.Evaluate(ctx, units)
	if err != nil {
		if res == nil || !res.Cancelled {
			return nil, err
		}
		a.Logger.Warn("analysis interrupted, keeping partial results", "error", err)
	}
	return res, err
}

func (a *Analysis) impactStage(ctx context.Context, res *engine.Result) (*analysis.ImpactReport, error) {
	changes, err := git.ChangedSince(ctx, RepoDir(a.Paths[0]), a.ChangedSince)
	if err != nil {
		return nil, fmt.Errorf("detect changes: %w", err)
	}
	impact := analysis.NewAnalyzer(res.Graphs).WithMaxHops(a.ImpactHops).AnalyzeImpact(changes)
	if len(changes) > 0 && len(impact.Units) == 0 {
		a.Logger.Warn("no analyzed file matches the change set, reporting nothing", "changed", len(changes))
	}
	a.Logger.Info("scoped to changes",
		"files", len(changes), "methods", len(impact.DirectlyAffected), "callers", len(impact.IndirectlyAffected))
	return impact, nil
}

// RepoDir is the directory git commands run in for path.
func RepoDir(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// Interrupted reports whether err only signals a cancelled run.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
