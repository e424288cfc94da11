package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesFlags struct {
	json  bool
	packs []string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered rules and whether they are enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := buildRegistry(cfg, rulesFlags.packs)
		if err != nil {
			return err
		}

		type entry struct {
			ID       string `json:"id"`
			Category string `json:"category"`
			Severity string `json:"severity"`
			Enabled  bool   `json:"enabled"`
			Summary  string `json:"summary"`
		}
		var entries []entry
		for _, r := range reg.All() {
			entries = append(entries, entry{
				ID:       r.ID,
				Category: string(r.Category),
				Severity: r.Severity.String(),
				Enabled:  reg.Enabled(r.ID),
				Summary:  r.Summary,
			})
		}

		if rulesFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tSEVERITY\tENABLED\tSUMMARY")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", e.ID, e.Category, e.Severity, e.Enabled, e.Summary)
		}
		return tw.Flush()
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesFlags.json, "json", false, "Print the rule list as JSON")
	rulesCmd.Flags().StringSliceVar(&rulesFlags.packs, "rules-pack", nil, "Additional YAML rule pack")
}
