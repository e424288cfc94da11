package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"factlint/internal/extractor"
	"factlint/internal/flow"
	"factlint/internal/frontend"
	"factlint/internal/git"
	"factlint/internal/graph"
	"factlint/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orders = `
class Orders {
    private int limit = 10;

    void submit(String id) {
        validate(id);
        store(id);
    }

    void validate(String id) {
        if (id == null) throw new IllegalArgumentException();
    }

    void store(String id) {
    }

    void audit() {
        submit("x");
    }
}`

func graphs(t *testing.T) map[string]*graph.Graph {
	t.Helper()
	return graphsFor(t, "/work/repo/src/Orders.java")
}

func graphsFor(t *testing.T, unit string) map[string]*graph.Graph {
	t.Helper()
	fe, err := frontend.New("java")
	require.NoError(t, err)
	u := fe.ParseSource(context.Background(), unit, []byte(orders))
	require.NoError(t, u.Err)
	table := extractor.New(extractor.DefaultConfig()).Extract(u)
	return map[string]*graph.Graph{u.ID: flow.Build(table).Graph}
}

func names(nodes []*graph.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestAnalyzeImpact(t *testing.T) {
	a := NewAnalyzer(graphs(t))

	rep := a.AnalyzeImpact([]git.ChangedFile{
		{Path: "src/Orders.java", ChangedLines: []int{3, 11, 12}},
		{Path: "src/Other.java", ChangedLines: []int{1}},
	})

	assert.Equal(t, []string{"validate"}, names(rep.DirectlyAffected))
	assert.Equal(t, []string{"submit"}, names(rep.IndirectlyAffected))
	assert.Equal(t, map[string][]int{"/work/repo/src/Orders.java": {3}}, rep.Loose)

	assert.Equal(t, map[string][]report.LineRange{
		"/work/repo/src/Orders.java": {
			{Start: 10, End: 12},
			{Start: 5, End: 8},
			{Start: 3, End: 3},
		},
	}, rep.Regions())
}

func TestAnalyzeImpact_MaxHops(t *testing.T) {
	changes := []git.ChangedFile{{Path: "src/Orders.java", ChangedLines: []int{11}}}

	rep := NewAnalyzer(graphs(t)).WithMaxHops(2).AnalyzeImpact(changes)
	assert.Equal(t, []string{"submit", "audit"}, names(rep.IndirectlyAffected))

	rep = NewAnalyzer(graphs(t)).WithMaxHops(0).AnalyzeImpact(changes)
	assert.Equal(t, []string{"validate"}, names(rep.DirectlyAffected))
	assert.Empty(t, rep.IndirectlyAffected)
}

func TestAnalyzeImpact_NoMatch(t *testing.T) {
	rep := NewAnalyzer(graphs(t)).AnalyzeImpact([]git.ChangedFile{{Path: "rders.java", ChangedLines: []int{5}}})
	assert.Empty(t, rep.DirectlyAffected)
	assert.Empty(t, rep.Units)
	assert.Empty(t, rep.Regions())
}

func TestAnalyzeImpact_FromSubdirectory(t *testing.T) {
	repo := t.TempDir()
	src := filepath.Join(repo, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Orders.java"), []byte(orders), 0o644))
	t.Chdir(src)

	// Units are named relative to the working directory, diff paths are
	// anchored at the repository root.
	a := NewAnalyzer(graphsFor(t, "Orders.java"))
	rep := a.AnalyzeImpact([]git.ChangedFile{
		{Path: filepath.Join(repo, "src", "Orders.java"), ChangedLines: []int{11}},
		{Path: filepath.Join(repo, "Orders.java"), ChangedLines: []int{11}},
	})

	assert.Equal(t, []string{"Orders.java"}, rep.Units)
	assert.Equal(t, []string{"validate"}, names(rep.DirectlyAffected))
	assert.Equal(t, []string{"submit"}, names(rep.IndirectlyAffected))
	assert.Equal(t, map[string][]report.LineRange{
		"Orders.java": {{Start: 10, End: 12}, {Start: 5, End: 8}},
	}, rep.Regions())
}
