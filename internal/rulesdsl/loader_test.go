package rulesdsl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"factlint/internal/extractor"
	"factlint/internal/flow"
	"factlint/internal/frontend"
	"factlint/internal/ir"
	"factlint/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `
class Client {
    void f(Context ctx, String user, InputStream in) throws Exception {
        ctx.lookup("ldap://" + user);
        ctx.lookup("java:comp/env/jdbc/db");
        String name = "rmi://" + user;
        new InitialContext().lookup(name);
        System.exit(1);
        SSLContext.getInstance("TLSv1");
        SSLContext.getInstance("TLSv1.3");
        new XMLDecoder(in).readObject();
    }
}`

func run(t *testing.T, rs []rules.Rule) []ir.Finding {
	t.Helper()
	reg, err := rules.NewRegistry(rules.WithoutBuiltins(), rules.WithRules(rs...))
	require.NoError(t, err)

	fe, err := frontend.New("java")
	require.NoError(t, err)
	u := fe.ParseSource(context.Background(), "Client.java", []byte(source))
	require.NoError(t, u.Err)
	table := extractor.New(extractor.DefaultConfig()).Extract(u)
	in := &rules.Input{Unit: u.ID, Facts: table, Flow: flow.Build(table)}

	var out []ir.Finding
	for _, r := range reg.List() {
		out = append(out, r.Evaluate(in)...)
	}
	return out
}

func TestLoad(t *testing.T) {
	rs, err := Load(filepath.Join("testdata", "pack.yaml"))
	require.NoError(t, err)
	require.Len(t, rs, 4)

	assert.Equal(t, "JNDI-LOOKUP", rs[0].ID)
	assert.Equal(t, ir.CategoryInjection, rs[0].Category)
	assert.Equal(t, ir.SeverityError, rs[0].Severity)
	assert.Equal(t, "System.{name} stops the whole JVM", rs[1].Summary)
	assert.Equal(t, ir.SeverityWarning, rs[2].Severity)

	byRule := map[string][]int{}
	for _, f := range run(t, rs) {
		byRule[f.RuleID] = append(byRule[f.RuleID], f.Location.Line)
	}
	assert.Equal(t, map[string][]int{
		"JNDI-LOOKUP": {4, 7},
		"SYSTEM-EXIT": {8},
		"LEGACY-TLS":  {9},
		"XML-DECODER": {11},
	}, byRule)
}

func TestLoad_Messages(t *testing.T) {
	rs, err := Load(filepath.Join("testdata", "pack.yaml"))
	require.NoError(t, err)

	for _, f := range run(t, rs) {
		if f.RuleID == "SYSTEM-EXIT" {
			assert.Equal(t, "System.exit stops the whole JVM", f.Message)
		}
		if f.RuleID == "JNDI-LOOKUP" {
			assert.Equal(t, "lookup resolves a name built at run time", f.Message)
			assert.Equal(t, "Look up only fixed names.", f.Suggestion)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"Bad yaml", "rules: [", "parse yaml"},
		{"Missing fields", "rules:\n  - id: X\n    where: {call: a}\n", "missing required fields"},
		{"Bad severity", "rules:\n  - {id: X, category: C, severity: fatal, message: m, where: {call: a}}\n", "unknown severity"},
		{"No pattern", "rules:\n  - {id: X, category: C, severity: info, message: m}\n", "call or new"},
		{"Both patterns", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {call: a, new: B}}\n", "not both"},
		{"Receiver on new", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {new: B, receiver_type: C}}\n", "call rules only"},
		{"Bad regex", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {call: '('}}\n", "call:"},
		{"Unknown key", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {call: a, recevier_type: B}}\n", "validate schema"},
		{"Mistyped arg", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {call: a, arg: first}}\n", "validate schema"},
		{"No rules key", "checks: []\n", "validate schema"},
		{"Negative arg", "rules:\n  - {id: X, category: C, severity: info, message: m, where: {call: a, arg: -1}}\n", "negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("rules:\n  - {id: WAIT, category: CONCURRENCY, severity: info, message: m, where: {call: wait}}\n"), 0o644))

	rs, err := LoadAll([]string{filepath.Join("testdata", "pack.yaml"), extra})
	require.NoError(t, err)
	assert.Len(t, rs, 5)
	assert.Equal(t, "WAIT", rs[4].ID)

	_, err = LoadAll([]string{filepath.Join(dir, "missing.yaml")})
	assert.ErrorContains(t, err, "read rules pack")
}
