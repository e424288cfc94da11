package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"factlint/internal/extractor"
	"factlint/internal/facts"
	"factlint/internal/frontend"
	"factlint/internal/ir"
	"factlint/internal/rules"
	"factlint/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, id, src string) *syntax.Unit {
	t.Helper()
	fe, err := frontend.New("java")
	require.NoError(t, err)
	return fe.ParseSource(context.Background(), id, []byte(src))
}

func newEngine(t *testing.T, opts []rules.Option, engineOpts ...Option) *Engine {
	t.Helper()
	reg, err := rules.NewRegistry(opts...)
	require.NoError(t, err)
	return New(reg, extractor.New(extractor.DefaultConfig()), engineOpts...)
}

type located struct {
	Rule string
	Line int
}

func summarize(fs []ir.Finding) []located {
	out := make([]located, 0, len(fs))
	for _, f := range fs {
		out = append(out, located{f.RuleID, f.Location.Line})
	}
	return out
}

func TestEvaluate_LegacyService(t *testing.T) {
	fe, err := frontend.New("java")
	require.NoError(t, err)
	u := fe.ParseFile(context.Background(), filepath.Join("testdata", "LegacyService.java"))
	require.NoError(t, u.Err)

	res, err := newEngine(t, nil).Evaluate(context.Background(), []*syntax.Unit{u})
	require.NoError(t, err)

	assert.Equal(t, []located{
		{"NULL-DEREF", 11},
		{"UNRELEASED-RESOURCE", 15},
		{"INFINITE-RECURSION", 22},
		{"REF-EQUALITY", 28},
		{"UNSYNC-SHARED-WRITE", 35},
		{"IGNORED-RETURN", 40},
		{"DOUBLE-CHECKED-LOCKING", 45},
		{"EQUALS-NO-HASHCODE", 58},
		{"UNRELEASED-RESOURCE", 66},
	}, summarize(res.Findings))
	assert.Empty(t, res.Faults)
	assert.Equal(t, []string{u.ID}, res.Units)
	assert.False(t, res.Cancelled)
	assert.Nil(t, res.Graphs)
}

func TestEvaluate_Idempotent(t *testing.T) {
	var units []*syntax.Unit
	for _, name := range []string{"b/Two.java", "a/One.java", "c/Three.java"} {
		units = append(units, parse(t, name, `
class C {
    void f(String a, String b, Connection c, String id) throws Exception {
        if (a == b) return;
        c.createStatement().executeQuery("SELECT * FROM t WHERE id = " + id);
        String s = null;
        s.trim();
    }
}`))
	}

	render := func(workers int) []byte {
		res, err := newEngine(t, nil, WithWorkers(workers)).Evaluate(context.Background(), units)
		require.NoError(t, err)
		b, err := json.Marshal(res.Findings)
		require.NoError(t, err)
		return b
	}

	first := render(1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, string(first), string(render(4)))
	}

	res, err := newEngine(t, nil).Evaluate(context.Background(), units)
	require.NoError(t, err)
	require.NotEmpty(t, res.Findings)
	assert.Equal(t, "a/One.java", res.Findings[0].Location.Unit)
	assert.IsNonDecreasing(t, offsetsOf(res.Findings, "a/One.java"))
	assert.Equal(t, []string{"b/Two.java", "a/One.java", "c/Three.java"}, res.Units)
}

func offsetsOf(fs []ir.Finding, unit string) []int {
	var out []int
	for _, f := range fs {
		if f.Location.Unit == unit {
			out = append(out, f.Location.Offset)
		}
	}
	return out
}

func TestEvaluate_FaultIsolation(t *testing.T) {
	boom := rules.Rule{
		ID: "BOOM", Category: "TEST", Severity: ir.SeverityError,
		Check: func(in *rules.Input) []rules.Hit { panic("boom") },
	}
	twice := rules.Rule{
		ID: "TWICE", Category: "TEST", Severity: ir.SeverityInfo,
		Check: func(in *rules.Input) []rules.Hit {
			calls := facts.All[facts.CallSite](in.Facts)
			if len(calls) == 0 {
				return nil
			}
			h := rules.Hit{Site: calls[0].Site, Message: "first call"}
			return []rules.Hit{h, h}
		},
	}
	e := newEngine(t, []rules.Option{rules.WithoutBuiltins(), rules.WithRules(boom, twice)})

	good := parse(t, "Good.java", "class A { void f() { g(); } }")
	broken := &syntax.Unit{ID: "Broken.java", Err: &ir.ParseFault{Unit: "Broken.java", Err: assert.AnError}}

	res, err := e.Evaluate(context.Background(), []*syntax.Unit{broken, good})
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, "TWICE", res.Findings[0].RuleID)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Good.java"}, res.Units)

	require.Len(t, res.Faults, 2)
	assert.Equal(t, ir.FaultParse, res.Faults[0].Kind)
	assert.Equal(t, "Broken.java", res.Faults[0].Unit)
	assert.Equal(t, ir.FaultEngine, res.Faults[1].Kind)
	assert.Equal(t, "BOOM", res.Faults[1].Rule)
	assert.Contains(t, res.Faults[1].Message, "boom")
}

func TestEvaluate_MalformedFacts(t *testing.T) {
	root := &syntax.Node{Kind: syntax.KindUnit, Span: syntax.Span{Start: 0, End: 10, Line: 1, Column: 1}, Children: []*syntax.Node{
		{Kind: syntax.KindError, Span: syntax.Span{Start: 2, End: 4, Line: 1, Column: 3}},
	}}
	u := &syntax.Unit{ID: "Odd.java", Text: []byte("0123456789"), Root: root}

	res, err := newEngine(t, nil).Evaluate(context.Background(), []*syntax.Unit{u})
	require.NoError(t, err)
	require.Len(t, res.Faults, 1)
	assert.Equal(t, ir.FaultMalformed, res.Faults[0].Kind)
	assert.Equal(t, []string{"Odd.java"}, res.Units)
}

func TestEvaluate_Cancelled(t *testing.T) {
	u := parse(t, "A.java", "class A { void f() { String s = null; s.trim(); } }")

	t.Run("Before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := newEngine(t, nil).Evaluate(ctx, []*syntax.Unit{u})
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, res.Cancelled)
		assert.Empty(t, res.Findings)
		assert.Empty(t, res.Units)
	})

	t.Run("Between units", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stop := rules.Rule{
			ID: "STOP", Category: "TEST", Severity: ir.SeverityInfo,
			Check: func(*rules.Input) []rules.Hit { cancel(); return nil },
		}
		e := newEngine(t, []rules.Option{rules.WithRules(stop)}, WithWorkers(1))
		second := parse(t, "B.java", "class B { void f() { String s = null; s.trim(); } }")

		res, err := e.Evaluate(ctx, []*syntax.Unit{u, second})
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, res.Cancelled)
		assert.NotContains(t, res.Units, "B.java")
		for _, f := range res.Findings {
			assert.Equal(t, "A.java", f.Location.Unit)
		}
	})
}

func TestEvaluate_CallGraphs(t *testing.T) {
	u := parse(t, "G.java", "class G { void a() { b(); } void b() { } }")
	res, err := newEngine(t, nil, WithCallGraphs()).Evaluate(context.Background(), []*syntax.Unit{u})
	require.NoError(t, err)

	g := res.Graphs["G.java"]
	require.NotNil(t, g)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}
