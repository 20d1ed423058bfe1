package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileRulesKeepsOrder(t *testing.T) {
	t.Parallel()

	rules, err := CompileRules([]RuleSpec{
		{Name: "raw-sql", Pattern: `(?i)\bdb\.raw\s*\(`},
		{Name: "raw-upload-access", Pattern: `\$_FILES\b`},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "raw-sql", rules[0].Name)
}

func TestCompileRulesRejectsBadSpecs(t *testing.T) {
	t.Parallel()

	_, err := CompileRules([]RuleSpec{{Name: "broken", Pattern: "("}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")

	_, err = CompileRules([]RuleSpec{{Name: "a", Pattern: "x"}, {Name: "a", Pattern: "y"}})
	require.Error(t, err)

	_, err = CompileRules([]RuleSpec{{Pattern: "x"}})
	require.Error(t, err)
}

func TestFirstMatchUsesDeclarationOrder(t *testing.T) {
	t.Parallel()

	rules, err := CompileRules([]RuleSpec{
		{Name: "first", Pattern: "needle"},
		{Name: "second", Pattern: "need"},
	})
	require.NoError(t, err)

	rule, ok := FirstMatch([]byte("a needle in a haystack"), rules)
	require.True(t, ok)
	require.Equal(t, "first", rule.Name)

	_, ok = FirstMatch([]byte("nothing here"), rules)
	require.False(t, ok)
}
