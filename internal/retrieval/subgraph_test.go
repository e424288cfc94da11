package retrieval

import (
	"testing"

	"factlint/internal/graph"

	"github.com/stretchr/testify/assert"
)

// chain builds D -> C -> B -> A plus E -> A.
func chain() *graph.Graph {
	g := graph.NewGraph("Chain.java")
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		g.Nodes[id] = &graph.Node{Unit: g.Unit, Key: id, Name: id}
	}
	g.Edges = []graph.Edge{
		{From: "B", To: "A"},
		{From: "C", To: "B"},
		{From: "D", To: "C"},
		{From: "E", To: "A"},
		{From: "E", To: "A"},
	}
	return g
}

func TestExtractCallers_BasicHopTraversal(t *testing.T) {
	sg := ExtractCallers(chain(), []string{"A"}, Config{MaxHops: 1})

	assert.Equal(t, []string{"A"}, sg.SeedIDs)
	assert.Equal(t, []string{"A", "B", "E"}, sg.NodeIDs)
	assert.Equal(t, []string{"B", "E"}, sg.Callers())
	assert.Equal(t, []graph.Edge{{From: "B", To: "A"}, {From: "E", To: "A"}}, sg.Edges)
}

func TestExtractCallers_Depth(t *testing.T) {
	sg := ExtractCallers(chain(), []string{"A"}, Config{MaxHops: 3})

	assert.Equal(t, []string{"B", "E", "C", "D"}, sg.Callers())
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "E": 1, "C": 2, "D": 3}, sg.Depth)
	assert.Len(t, sg.Edges, 4)
}

func TestExtractCallers_SeedsAndLimits(t *testing.T) {
	g := chain()

	sg := ExtractCallers(g, []string{"B", "A", "missing", "A"}, DefaultConfig())
	assert.Equal(t, []string{"A", "B"}, sg.SeedIDs)
	assert.Equal(t, []string{"C", "E"}, sg.Callers())

	sg = ExtractCallers(g, []string{"A"}, Config{MaxHops: -2})
	assert.Equal(t, 0, sg.MaxHops)
	assert.Equal(t, []string{"A"}, sg.NodeIDs)
	assert.Empty(t, sg.Edges)

	assert.Empty(t, ExtractCallers(nil, []string{"A"}, DefaultConfig()).NodeIDs)
}
