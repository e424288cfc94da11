package rules

import (
	"testing"

	"factlint/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*Input) []Hit { return nil }

func TestNewRegistry_Builtins(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, r := range reg.List() {
		ids = append(ids, r.ID)
	}
	assert.IsIncreasing(t, ids)
	assert.Subset(t, ids, []string{
		"NULL-DEREF", "UNRELEASED-RESOURCE", "REF-EQUALITY", "UNSYNC-SHARED-WRITE",
		"SQL-STRING-QUERY", "INSECURE-DESERIALIZATION", "HARDCODED-SECRET",
	})
	assert.Len(t, ids, len(Builtin()))

	r, ok := reg.Get("null-deref")
	require.True(t, ok)
	assert.Equal(t, ir.CategoryNullSafety, r.Category)
	assert.Equal(t, ir.SeverityError, r.Severity)
}

func TestNewRegistry_Settings(t *testing.T) {
	s, err := ParseSettings([]string{"weak-random"}, map[string]string{"EMPTY-CATCH": "error"})
	require.NoError(t, err)

	reg, err := NewRegistry(WithSettings(s))
	require.NoError(t, err)

	assert.False(t, reg.Enabled("WEAK-RANDOM"))
	assert.True(t, reg.Enabled("EMPTY-CATCH"))
	for _, r := range reg.List() {
		assert.NotEqual(t, "WEAK-RANDOM", r.ID)
	}
	assert.Len(t, reg.All(), len(reg.List())+1)

	r, _ := reg.Get("EMPTY-CATCH")
	assert.Equal(t, ir.SeverityError, r.Severity)

	t.Run("Unknown rule", func(t *testing.T) {
		_, err := NewRegistry(WithSettings(Settings{Disabled: map[string]bool{"NOPE": true}}))
		assert.ErrorContains(t, err, "NOPE")
	})

	t.Run("Bad severity", func(t *testing.T) {
		_, err := ParseSettings(nil, map[string]string{"NULL-DEREF": "fatal"})
		assert.Error(t, err)
	})
}

func TestRegistry_Register(t *testing.T) {
	custom := Rule{ID: "CUSTOM-1", Category: "STYLE", Severity: ir.SeverityInfo, Check: noop}

	reg, err := NewRegistry(WithoutBuiltins(), WithRules(custom))
	require.NoError(t, err)
	require.Len(t, reg.List(), 1)
	assert.Equal(t, ir.Category("STYLE"), reg.List()[0].Category)

	assert.ErrorIs(t, reg.Register(Rule{ID: "LATE", Category: "X", Severity: ir.SeverityInfo, Check: noop}), ErrFrozen)

	cases := []struct {
		name string
		rule Rule
	}{
		{"Duplicate", Rule{ID: "custom-1", Category: "X", Severity: ir.SeverityInfo, Check: noop}},
		{"Missing check", Rule{ID: "C2", Category: "X", Severity: ir.SeverityInfo}},
		{"Missing category", Rule{ID: "C3", Severity: ir.SeverityInfo, Check: noop}},
		{"Missing severity", Rule{ID: "C4", Category: "X", Check: noop}},
		{"Missing id", Rule{Category: "X", Severity: ir.SeverityInfo, Check: noop}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(WithoutBuiltins(), WithRules(custom, tc.rule))
			assert.Error(t, err)
		})
	}
}

func TestEntropy(t *testing.T) {
	assert.Zero(t, entropy(""))
	assert.Zero(t, entropy("aaaa"))
	assert.InDelta(t, 2.0, entropy("abcd"), 1e-9)
	assert.Greater(t, entropy("P@ssw0rd_IN_CODE"), 3.0)
	assert.Less(t, entropy("password"), 3.0)
}
