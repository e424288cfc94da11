package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"factlint/internal/ir"
	"factlint/internal/rules"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const informationURI = "https://github.com/factlint/factlint"

// Write renders r in the named format: text, jsonl, json, sarif or markdown.
func Write(w io.Writer, format string, r *Report, catalog []rules.Rule) error {
	switch format {
	case "text", "":
		return WriteText(w, r)
	case "jsonl":
		return WriteJSONL(w, r)
	case "json":
		return WriteJSON(w, r)
	case "sarif":
		return WriteSARIF(w, r, catalog)
	case "markdown":
		return WriteMarkdown(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSONL writes one record per finding, then one summary line.
func WriteJSONL(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	for _, rec := range r.Records() {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	tail := struct {
		Version string  `json:"version"`
		Summary Summary `json:"summary"`
	}{r.Version, r.Summary}
	if err := enc.Encode(tail); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteJSON writes the whole report as one indented document.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes one line per finding in compiler style, then the counts.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "%s:%d:%d: %s [%s] %s\n",
			f.Location.Unit, f.Location.Line, f.Location.Column, f.Severity, f.RuleID, f.Message)
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "    fix: %s\n", f.Suggestion)
		}
	}
	for _, ft := range r.Faults {
		fmt.Fprintf(&b, "%s: %s fault: %s\n", ft.Unit, ft.Kind, ft.Message)
	}
	fmt.Fprintf(&b, "%d finding(s) in %d unit(s)", r.Summary.Total, r.Summary.Units)
	if r.Summary.Degraded() {
		fmt.Fprintf(&b, "; analysis degraded (%d skipped, %d fault(s))", r.Summary.Skipped, len(r.Faults))
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown writes a summary table followed by the findings grouped by
// unit, suitable for a pull request comment.
func WriteMarkdown(w io.Writer, r *Report) error {
	var b strings.Builder
	b.WriteString("## factlint report\n\n")
	fmt.Fprintf(&b, "**%d finding(s)** in %d unit(s)", r.Summary.Total, r.Summary.Units)
	if r.Summary.Degraded() {
		fmt.Fprintf(&b, " ⚠️ analysis degraded (%d skipped, %d fault(s))", r.Summary.Skipped, len(r.Faults))
	}
	b.WriteString("\n\n")

	if len(r.Summary.BySeverity) > 0 {
		b.WriteString("| Severity | Count |\n|---|---|\n")
		for _, sev := range []ir.Severity{ir.SeverityError, ir.SeverityWarning, ir.SeverityInfo} {
			if n := r.Summary.BySeverity[sev.String()]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", sev, n)
			}
		}
		b.WriteString("\n")
	}

	unit := ""
	for _, f := range r.Findings {
		if f.Location.Unit != unit {
			unit = f.Location.Unit
			fmt.Fprintf(&b, "### `%s`\n\n", unit)
		}
		fmt.Fprintf(&b, "- **%s** `%s` line %d: %s", f.Severity, f.RuleID, f.Location.Line, escapeMarkdown(f.Message))
		if f.Suggestion != "" {
			fmt.Fprintf(&b, " _(%s)_", escapeMarkdown(f.Suggestion))
		}
		b.WriteString("\n")
	}
	if len(r.Faults) > 0 {
		b.WriteString("\n<details><summary>Faults</summary>\n\n")
		for _, ft := range r.Faults {
			fmt.Fprintf(&b, "- `%s` %s: %s\n", ft.Unit, ft.Kind, escapeMarkdown(ft.Message))
		}
		b.WriteString("\n</details>\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var markdownEscaper = strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_", "`", "\\`")

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// WriteSARIF writes a SARIF 2.1.0 log with one run. catalog supplies rule
// descriptions; rules that fired but are missing from it are still listed.
func WriteSARIF(w io.Writer, r *Report, catalog []rules.Rule) error {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("create sarif report: %w", err)
	}
	run := sarif.NewRunWithInformationURI("factlint", informationURI)

	for _, rule := range catalog {
		run.AddRule(rule.ID).
			WithDescription(rule.Summary).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sarifLevel(rule.Severity)}).
			WithProperties(sarif.Properties{"category": string(rule.Category)})
	}

	for _, f := range r.Findings {
		run.AddRule(f.RuleID)
		region := sarif.NewRegion().
			WithStartLine(f.Location.Line).
			WithStartColumn(f.Location.Column)
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Location.Unit)).
				WithRegion(region),
		)
		result := sarif.NewRuleResult(f.RuleID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location}).
			WithPartialFingerPrints(map[string]interface{}{"factlint/v1": f.ID})
		run.AddResult(result)
	}
	log.AddRun(run)

	if err := log.PrettyWrite(w); err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}
	return nil
}

func sarifLevel(s ir.Severity) string {
	switch s {
	case ir.SeverityError:
		return "error"
	case ir.SeverityWarning:
		return "warning"
	case ir.SeverityInfo:
		return "note"
	default:
		return "none"
	}
}
