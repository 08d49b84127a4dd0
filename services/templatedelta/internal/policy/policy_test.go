package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeChangeRule(t *testing.T) {
	p := NewDefaultPolicy()

	tests := []struct {
		oldKind     string
		newKind     string
		destructive bool
	}{
		{"string", "int", true},
		{"int", "string", false},
		{"float", "int", true},
		{"int", "float", false},
		{"String", "Int", true},
		{"TEXT", "temporal", true},
		{"rich_text", "text", true},
		{"text", "rich-text", false},
		{"hologram", "int", false},
		{"text", "text", false},
	}

	for _, tt := range tests {
		t.Run(tt.oldKind+"->"+tt.newKind, func(t *testing.T) {
			assert.Equal(t, tt.destructive, p.IsDestructiveTypeChange(tt.oldKind, tt.newKind))
		})
	}
}

func TestConstraintChangeRule(t *testing.T) {
	p := NewDefaultPolicy()

	short := strings.Repeat("a", 10)
	long := strings.Repeat("b", 20)

	assert.True(t, p.IsDestructiveConstraintChange(short, long))
	assert.False(t, p.IsDestructiveConstraintChange(long, short))
	assert.False(t, p.IsDestructiveConstraintChange(short, strings.Repeat("c", 10)), "equal length is not destructive")
	assert.True(t, p.IsDestructiveConstraintChange("", "{}"))
}

func TestExtraPairs(t *testing.T) {
	p := NewDefaultPolicy(KindPair{From: "Email", To: "Text"})
	assert.True(t, p.IsDestructiveTypeChange("email", "text"))
	assert.False(t, NewDefaultPolicy().IsDestructiveTypeChange("email", "text"))

	p.Deny(KindPair{From: "link", To: "text"})
	assert.True(t, p.IsDestructiveTypeChange("link", "text"))
}

func TestClassStylePairsMatchCanonicalKinds(t *testing.T) {
	p := NewDefaultPolicy(KindPair{From: "EmailField", To: "TextField"})
	assert.True(t, p.IsDestructiveTypeChange("email", "text"))
	assert.True(t, p.IsDestructiveTypeChange("EmailField", "text"))

	p.Deny(KindPair{From: "double", To: "integer"})
	assert.True(t, p.IsDestructiveTypeChange("float", "int"))
}

func TestZeroValuePolicy(t *testing.T) {
	var p DefaultPolicy
	assert.False(t, p.IsDestructiveTypeChange("string", "int"))

	assert.NotPanics(t, func() { p.Deny(KindPair{From: "link", To: "text"}) })
	assert.True(t, p.IsDestructiveTypeChange("link", "text"))
	assert.Equal(t, []KindPair{{From: "link", To: "text"}}, p.DenyList())
}

func TestDenyListSorted(t *testing.T) {
	pairs := NewDefaultPolicy().DenyList()
	require.Len(t, pairs, len(lossyConversions))
	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1], pairs[i]
		assert.True(t, prev.From < cur.From || (prev.From == cur.From && prev.To < cur.To),
			"%s should sort before %s", prev, cur)
	}
}

func TestParseKindPair(t *testing.T) {
	pair, err := ParseKindPair("TextField -> IntField")
	require.NoError(t, err)
	assert.Equal(t, KindPair{From: "text", To: "int"}, pair)
	assert.Equal(t, "text->int", pair.String())

	pair, err = ParseKindPair("integer->Bool")
	require.NoError(t, err)
	assert.Equal(t, KindPair{From: "int", To: "boolean"}, pair)

	pair, err = ParseKindPair("HologramField->text")
	require.NoError(t, err)
	assert.Equal(t, KindPair{From: "hologram-field", To: "text"}, pair)

	_, err = ParseKindPair("text")
	assert.Error(t, err)

	_, err = ParseKindPair("->int")
	assert.Error(t, err)
}
