package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"factlint/internal/report"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtures = "../../internal/engine/testdata"

// resetFlags undoes the previous invocation; cobra keeps flag values on the
// package-level commands.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func tempConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "factlint.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("rules:\n  disabled: [PRINT-STACK-TRACE]\n"), 0o644))
	return cfgPath, filepath.Join(dir, "runs.db")
}

func TestAnalyze_JSONL(t *testing.T) {
	cfg, _ := tempConfig(t)

	out, err := execute(t, "analyze", fixtures, "--config", cfg, "--format", "jsonl", "--fail-on", "none")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.Contains(t, lines[0], `"ruleId":"NULL-DEREF"`)
	assert.Contains(t, lines[9], `"version":"factlint.report/v1"`)
}

func TestAnalyze_FailOn(t *testing.T) {
	cfg, _ := tempConfig(t)

	_, err := execute(t, "analyze", fixtures, "--config", cfg, "--format", "text", "--fail-on", "error",
		"--rule", "ref-equality")
	require.NoError(t, err)

	_, err = execute(t, "analyze", fixtures, "--config", cfg, "--format", "text", "--fail-on", "warning",
		"--rule", "ref-equality")
	var status *exitStatus
	require.True(t, errors.As(err, &status))
	assert.Equal(t, exitFindings, status.code)

	_, err = execute(t, "analyze", fixtures, "--config", cfg, "--format", "yaml")
	assert.ErrorContains(t, err, "output.format")
}

func TestAnalyze_SaveShowRuns(t *testing.T) {
	cfg, db := tempConfig(t)

	_, err := execute(t, "analyze", fixtures, "--config", cfg, "--db", db, "--format", "text",
		"--fail-on", "none", "--save")
	require.NoError(t, err)

	out, err := execute(t, "show", "latest", "--config", cfg, "--db", db, "--format", "json")
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 9, rep.Summary.Total)

	out, err = execute(t, "runs", "--config", cfg, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	out, err = execute(t, "diff", "latest", "latest", "--config", cfg, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "0 new, 0 fixed, 9 unchanged")
}

func TestRules(t *testing.T) {
	cfg, _ := tempConfig(t)

	out, err := execute(t, "rules", "--config", cfg, "--json")
	require.NoError(t, err)

	var entries []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	enabled := map[string]bool{}
	for _, e := range entries {
		enabled[e.ID] = e.Enabled
	}
	assert.True(t, enabled["NULL-DEREF"])
	assert.False(t, enabled["PRINT-STACK-TRACE"])
}
