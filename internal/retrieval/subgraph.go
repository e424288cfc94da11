package retrieval

import (
	"sort"

	"factlint/internal/graph"
)

// Config controls how caller subgraphs are extracted.
type Config struct {
	MaxHops int
}

func DefaultConfig() Config {
	return Config{MaxHops: 1}
}

// Subgraph is the set of methods that reach the seeds through calls.
type Subgraph struct {
	MaxHops int
	SeedIDs []string
	// NodeIDs holds seeds and callers, sorted.
	NodeIDs []string
	// Depth is the number of call hops from a node to the nearest seed.
	Depth map[string]int
	Edges []graph.Edge
}

// ExtractCallers walks call edges backwards from seeds, up to MaxHops away.
func ExtractCallers(g *graph.Graph, seeds []string, cfg Config) *Subgraph {
	if cfg.MaxHops < 0 {
		cfg.MaxHops = 0
	}
	sg := &Subgraph{MaxHops: cfg.MaxHops, Depth: map[string]int{}}
	if g == nil {
		return sg
	}

	queue := make([]queueItem, 0, len(seeds))
	for _, id := range seeds {
		if _, ok := g.Nodes[id]; !ok {
			continue
		}
		if _, dup := sg.Depth[id]; dup {
			continue
		}
		sg.Depth[id] = 0
		queue = append(queue, queueItem{id: id, depth: 0})
	}
	sg.SeedIDs = sortedKeys(sg.Depth)

	callers := make(map[string][]graph.Edge)
	for _, e := range g.Edges {
		callers[e.To] = append(callers[e.To], e)
	}

	edgeSeen := make(map[string]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= cfg.MaxHops {
			continue
		}

		for _, e := range callers[cur.id] {
			if sig := e.From + "->" + e.To; !edgeSeen[sig] {
				edgeSeen[sig] = true
				sg.Edges = append(sg.Edges, e)
			}
			if _, seen := sg.Depth[e.From]; !seen {
				sg.Depth[e.From] = cur.depth + 1
				queue = append(queue, queueItem{id: e.From, depth: cur.depth + 1})
			}
		}
	}

	sg.NodeIDs = sortedKeys(sg.Depth)
	sort.Slice(sg.Edges, func(i, j int) bool {
		if sg.Edges[i].From == sg.Edges[j].From {
			return sg.Edges[i].To < sg.Edges[j].To
		}
		return sg.Edges[i].From < sg.Edges[j].From
	})
	return sg
}

// Callers returns the non-seed nodes ordered by depth, then key.
func (sg *Subgraph) Callers() []string {
	var out []string
	for _, id := range sg.NodeIDs {
		if sg.Depth[id] > 0 {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return sg.Depth[out[i]] < sg.Depth[out[j]] })
	return out
}

type queueItem struct {
	id    string
	depth int
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
