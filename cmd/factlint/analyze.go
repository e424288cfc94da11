package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"factlint/internal/config"
	"factlint/internal/git"
	"factlint/internal/ir"
	"factlint/internal/pipeline"
	"factlint/internal/report"
	"factlint/internal/rules"
	"factlint/internal/storage"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	format       string
	output       string
	minSeverity  string
	failOn       string
	categories   []string
	rules        []string
	packs        []string
	changedSince string
	impactHops   int
	workers      int
	strict       bool
	save         bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Analyze Java sources and report findings",
	Long: `Analyze parses every Java file under the given paths (default: the current
directory), evaluates the enabled rules and writes the report.

With --changed-since only findings inside methods touched since the given git
revision, or inside their callers, are reported.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.format, "format", "f", "", "Output format: "+strings.Join(config.Formats, ", "))
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringVar(&analyzeFlags.minSeverity, "min-severity", "", "Drop findings below this severity")
	f.StringVar(&analyzeFlags.failOn, "fail-on", "", "Exit 1 when a finding reaches this severity (or none)")
	f.StringSliceVar(&analyzeFlags.categories, "category", nil, "Only report these categories")
	f.StringSliceVar(&analyzeFlags.rules, "rule", nil, "Only report these rule IDs")
	f.StringSliceVar(&analyzeFlags.packs, "rules-pack", nil, "Additional YAML rule pack")
	f.StringVar(&analyzeFlags.changedSince, "changed-since", "", "Only report findings related to lines changed since this git revision")
	f.IntVar(&analyzeFlags.impactHops, "impact-hops", 1, "Caller levels above a changed method kept in scope by --changed-since")
	f.IntVarP(&analyzeFlags.workers, "workers", "w", 0, "Units analyzed concurrently (default: number of CPUs)")
	f.BoolVar(&analyzeFlags.strict, "strict", false, "Exit 2 when any unit could not be fully analyzed")
	f.BoolVar(&analyzeFlags.save, "save", false, "Record the run in the history database")
}

// applyFlags overrides the configuration with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = analyzeFlags.format
	}
	if flags.Changed("min-severity") {
		cfg.Output.MinSeverity = analyzeFlags.minSeverity
	}
	if flags.Changed("fail-on") {
		cfg.Output.FailOn = analyzeFlags.failOn
	}
	if flags.Changed("workers") {
		cfg.Engine.Workers = analyzeFlags.workers
	}
	return cfg.Validate()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	reg, err := buildRegistry(cfg, analyzeFlags.packs)
	if err != nil {
		return err
	}

	run := &pipeline.Analysis{
		Paths:        args,
		Registry:     reg,
		Extractor:    cfg.ExtractorConfig(),
		Workers:      cfg.Engine.Workers,
		Filter:       report.Filter{MinSeverity: cfg.MinSeverity()},
		ChangedSince: analyzeFlags.changedSince,
		ImpactHops:   analyzeFlags.impactHops,
		Logger:       logger,
	}
	for _, c := range analyzeFlags.categories {
		run.Filter.Categories = append(run.Filter.Categories, ir.Category(strings.ToUpper(c)))
	}
	for _, id := range analyzeFlags.rules {
		run.Filter.Rules = append(run.Filter.Rules, strings.ToUpper(strings.TrimSpace(id)))
	}

	out, runErr := run.Run(ctx)
	if out == nil || (runErr != nil && !pipeline.Interrupted(runErr)) {
		return runErr
	}

	if err := writeReport(cmd, cfg.Output.Format, analyzeFlags.output, out.Report, reg.All()); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if analyzeFlags.save {
		if err := saveRun(cmd, cfg, logger, run.Paths[0], out); err != nil {
			return err
		}
	}

	return verdict(cfg, out.Report)
}

func writeReport(cmd *cobra.Command, format, output string, rep *report.Report, catalog []rules.Rule) error {
	if output == "" {
		return report.Write(cmd.OutOrStdout(), format, rep, catalog)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := report.Write(f, format, rep, catalog); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveRun(cmd *cobra.Command, cfg *config.Config, logger hclog.Logger, root string, out *pipeline.Outcome) error {
	store, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run := &storage.Run{Root: root, Rules: out.Result.Rules}
	if abs, err := filepath.Abs(root); err == nil {
		run.Root = abs
	}
	if rev, err := git.Revision(cmd.Context(), pipeline.RepoDir(root)); err == nil {
		run.Revision = rev
	}
	if err := store.SaveRun(cmd.Context(), run, out.Report); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	logger.Info("run saved", "id", run.ID, "db", cfg.Storage.DB)
	return nil
}

// verdict maps the report to the process exit status. Degraded analysis under
// --strict wins over findings since the findings are incomplete.
func verdict(cfg *config.Config, rep *report.Report) error {
	if analyzeFlags.strict && rep.Summary.Degraded() {
		return &exitStatus{code: exitDegraded, reason: "analysis degraded"}
	}
	threshold, ok, err := cfg.FailOn()
	if err != nil {
		return err
	}
	if ok && rep.Summary.Total > 0 && rep.MaxSeverity() >= threshold {
		return &exitStatus{code: exitFindings, reason: fmt.Sprintf("findings at %s or above", threshold)}
	}
	return nil
}
