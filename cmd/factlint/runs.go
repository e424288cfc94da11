package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"factlint/internal/config"
	"factlint/internal/report"
	"factlint/internal/storage"

	"github.com/spf13/cobra"
)

var (
	runsLimit  int
	runsPrune  int
	showFormat string
	diffJSON   bool
	diffFailOn bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if cmd.Flags().Changed("prune") {
			n, err := store.PruneRuns(cmd.Context(), runsPrune)
			if err != nil {
				return fmt.Errorf("prune runs: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "removed %d run(s)\n", n)
		}

		runs, err := store.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tREVISION\tFINDINGS\tDEGRADED\tROOT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), short(r.Revision), r.Summary.Total, r.Summary.Degraded(), r.Root)
		}
		return tw.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run>",
	Short: "Print the report of a recorded run (ID, ID prefix or \"latest\")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		_, rep, err := store.LoadRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format = showFormat
		}
		reg, err := buildRegistry(cfg, nil)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), format, rep, reg.All())
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <base> <head>",
	Short: "Compare the findings of two recorded runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		diff, err := store.DiffRuns(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if diffJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(diff); err != nil {
				return err
			}
		} else {
			writeDiff(cmd, diff)
		}

		if diffFailOn && len(diff.New) > 0 {
			return &exitStatus{code: exitFindings, reason: "new findings"}
		}
		return nil
	},
}

func writeDiff(cmd *cobra.Command, diff *storage.Diff) {
	out := cmd.OutOrStdout()
	for _, f := range diff.New {
		fmt.Fprintf(out, "+ %s:%d:%d: %s [%s] %s\n", f.Location.Unit, f.Location.Line, f.Location.Column, f.Severity, f.RuleID, f.Message)
	}
	for _, f := range diff.Fixed {
		fmt.Fprintf(out, "- %s:%d:%d: %s [%s] %s\n", f.Location.Unit, f.Location.Line, f.Location.Column, f.Severity, f.RuleID, f.Message)
	}
	fmt.Fprintf(out, "%d new, %d fixed, %d unchanged (%s..%s)\n",
		len(diff.New), len(diff.Fixed), diff.Unchanged, short(diff.Base), short(diff.Head))
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	runsCmd.Flags().IntVar(&runsPrune, "prune", 0, "Delete all but this many recent runs before listing")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "text", "Output format: "+strings.Join(config.Formats, ", "))
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Print the diff as JSON")
	diffCmd.Flags().BoolVar(&diffFailOn, "fail-on-new", false, "Exit 1 when the head run has new findings")
}
