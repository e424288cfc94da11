package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"factlint/internal/extractor"
	"factlint/internal/report"
	"factlint/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry(t *testing.T) *rules.Registry {
	t.Helper()
	reg, err := rules.NewRegistry()
	require.NoError(t, err)
	return reg
}

func TestRun(t *testing.T) {
	a := &Analysis{
		Paths:     []string{"../engine/testdata"},
		Registry:  registry(t),
		Extractor: extractor.DefaultConfig(),
		Workers:   2,
	}
	out, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Files)
	assert.Nil(t, out.Impact)
	assert.Equal(t, 9, out.Report.Summary.Total)
	assert.False(t, out.Report.Summary.Degraded())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Analysis{Paths: []string{"../engine/testdata"}, Registry: registry(t), Extractor: extractor.DefaultConfig()}
	_, err := a.Run(ctx)
	assert.True(t, Interrupted(err))
}

const (
	svcBefore = `class Svc {
    void a() {
        try { run(); } catch (Exception e) { }
    }
    void b() {
        try { run(); } catch (Exception e) { }
    }
    void run() { }
}
`
	svcAfter = `class Svc {
    void a() {
        try { run(); } catch (Exception e) { }
    }
    void b() {
        try { run(); run(); } catch (Exception e) { }
    }
    void run() { }
}
`
)

func TestRun_ChangedSince(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir, "-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	file := filepath.Join(dir, "Svc.java")
	git("init", "-q")
	require.NoError(t, os.WriteFile(file, []byte(svcBefore), 0o644))
	git("add", "Svc.java")
	git("commit", "-q", "-m", "init")
	require.NoError(t, os.WriteFile(file, []byte(svcAfter), 0o644))

	base := &Analysis{
		Paths:     []string{dir},
		Registry:  registry(t),
		Extractor: extractor.DefaultConfig(),
		Filter:    report.Filter{Rules: []string{"EMPTY-CATCH"}},
	}
	full, err := base.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, full.Report.Summary.Total)

	scoped := *base
	scoped.ChangedSince = "HEAD"
	scoped.ImpactHops = 1
	out, err := scoped.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, out.Impact)
	require.Len(t, out.Impact.DirectlyAffected, 1)
	assert.Equal(t, "b", out.Impact.DirectlyAffected[0].Name)
	require.Len(t, out.Report.Findings, 1)
	assert.Equal(t, 6, out.Report.Findings[0].Location.Line)
}

func TestRun_ChangedSinceFromSubdirectory(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir, "-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	file := filepath.Join(src, "Svc.java")
	git("init", "-q")
	require.NoError(t, os.WriteFile(file, []byte(svcBefore), 0o644))
	git("add", "src/Svc.java")
	git("commit", "-q", "-m", "init")
	require.NoError(t, os.WriteFile(file, []byte(svcAfter), 0o644))

	t.Chdir(src)
	a := &Analysis{
		Paths:        []string{"."},
		Registry:     registry(t),
		Extractor:    extractor.DefaultConfig(),
		Filter:       report.Filter{Rules: []string{"EMPTY-CATCH"}},
		ChangedSince: "HEAD",
	}
	out, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Impact.Units, 1)
	require.Len(t, out.Impact.DirectlyAffected, 1)
	assert.Equal(t, "b", out.Impact.DirectlyAffected[0].Name)
	require.Len(t, out.Report.Findings, 1)
	assert.Equal(t, 6, out.Report.Findings[0].Location.Line)
}
