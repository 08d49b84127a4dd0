package comparison

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/templatedelta/pkg/templatedelta"
	"github.com/redbco/templatedelta/pkg/templatemodel"
	"github.com/redbco/templatedelta/services/templatedelta/internal/policy"
)

func intPtr(v int) *int { return &v }

func textField(label string) *templatemodel.FieldDefinition {
	return &templatemodel.FieldDefinition{
		Kind:        templatemodel.KindText,
		UI:          &templatemodel.UIHints{Label: label, InputType: "text"},
		Constraints: &templatemodel.ValueConstraints{MaxLength: intPtr(100)},
	}
}

func field(kind templatemodel.FieldKind, label string) *templatemodel.FieldDefinition {
	f := textField(label)
	f.Kind = kind
	return f
}

func node(fields map[string]*templatemodel.FieldDefinition, elements map[string]*templatemodel.Node, order ...string) *templatemodel.Node {
	n := templatemodel.NewNode()
	for k, v := range fields {
		n.Fields[k] = v
	}
	for k, v := range elements {
		n.Elements[k] = v
	}
	n.Order = order
	return n
}

func descriptions(changes []templatedelta.Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Description())
	}
	return out
}

func TestTemplateSchemaComparator(t *testing.T) {
	comparator := NewTemplateSchemaComparator(policy.NewDefaultPolicy())

	t.Run("compare identical templates", func(t *testing.T) {
		tmpl := node(
			map[string]*templatemodel.FieldDefinition{"title": textField("Title"), "count": field(templatemodel.KindInt, "Count")},
			map[string]*templatemodel.Node{
				"sample": node(map[string]*templatemodel.FieldDefinition{"tissue": textField("Tissue")}, nil, "tissue"),
			},
			"title", "count", "sample",
		)

		delta := comparator.Compare(tmpl, tmpl)
		assert.True(t, delta.IsSafeChange())
		assert.Empty(t, delta.DestructiveChanges())
		assert.Empty(t, delta.NonDestructiveChanges())
	})

	t.Run("detect added field", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"a": textField("A")}, nil, "a")
		curr := node(map[string]*templatemodel.FieldDefinition{"a": textField("A"), "b": field(templatemodel.KindInt, "B")}, nil, "a", "b")

		delta := comparator.Compare(prev, curr)
		require.Len(t, delta.NonDestructiveChanges(), 1)
		assert.Empty(t, delta.DestructiveChanges())
		assert.Equal(t, &templatedelta.Addition{Key: "b", Artifact: templatedelta.ArtifactField}, delta.NonDestructiveChanges()[0])
	})

	t.Run("detect removed field", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"F1": textField("F1")}, nil, "F1")
		curr := node(nil, nil)

		delta := comparator.Compare(prev, curr)
		assert.Empty(t, delta.NonDestructiveChanges())
		require.Len(t, delta.DestructiveChanges(), 1)
		assert.Equal(t, &templatedelta.Deletion{Key: "F1", Artifact: templatedelta.ArtifactField}, delta.DestructiveChanges()[0])
		assert.True(t, delta.DestructiveChanges()[0].IsDestructive())
	})

	t.Run("detect rename", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"F1": textField("Name")}, nil, "F1")
		curr := node(map[string]*templatemodel.FieldDefinition{"F2": textField("Name")}, nil, "F2")

		delta := comparator.Compare(prev, curr)
		assert.Empty(t, delta.DestructiveChanges())
		assert.Equal(t, []templatedelta.Change{&templatedelta.Rename{OldName: "F1", NewName: "F2"}}, delta.NonDestructiveChanges())
	})

	t.Run("rename requires identical definition", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"F1": textField("Name")}, nil, "F1")
		curr := node(map[string]*templatemodel.FieldDefinition{"F2": textField("Full name")}, nil, "F2")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []string{"Field F2 was added"}, descriptions(delta.NonDestructiveChanges()))
		assert.Equal(t, []string{"Field F1 was removed"}, descriptions(delta.DestructiveChanges()))
	})

	t.Run("fields without hints are never renamed", func(t *testing.T) {
		bare := &templatemodel.FieldDefinition{Kind: templatemodel.KindText}
		prev := node(map[string]*templatemodel.FieldDefinition{"a": bare}, nil, "a")
		curr := node(map[string]*templatemodel.FieldDefinition{"b": {Kind: templatemodel.KindText}}, nil, "b")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, 0, delta.Count(templatedelta.KindRename))
		assert.Equal(t, 1, delta.Count(templatedelta.KindAddition))
		assert.Equal(t, 1, delta.Count(templatedelta.KindDeletion))
	})

	t.Run("rename candidates are matched in key order", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"old": textField("Same")}, nil, "old")
		curr := node(map[string]*templatemodel.FieldDefinition{"zeta": textField("Same"), "alpha": textField("Same")}, nil, "alpha", "zeta")

		for i := 0; i < 20; i++ {
			delta := comparator.Compare(prev, curr)
			assert.Equal(t, []string{
				"Field old was renamed to alpha",
				"Field zeta was added",
			}, descriptions(delta.NonDestructiveChanges()))
			assert.Empty(t, delta.DestructiveChanges())
		}
	})

	t.Run("greedy matching consumes candidates", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"a": textField("Same"), "b": textField("Same")}, nil, "a", "b")
		curr := node(map[string]*templatemodel.FieldDefinition{"c": textField("Same"), "d": textField("Same")}, nil, "c", "d")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []string{
			"Field a was renamed to c",
			"Field b was renamed to d",
		}, descriptions(delta.NonDestructiveChanges()))
	})

	t.Run("elements are never renamed", func(t *testing.T) {
		prev := node(nil, map[string]*templatemodel.Node{"sample": node(nil, nil)}, "sample")
		curr := node(nil, map[string]*templatemodel.Node{"specimen": node(nil, nil)}, "specimen")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []templatedelta.Change{&templatedelta.Addition{Key: "specimen", Artifact: templatedelta.ArtifactElement}}, delta.NonDestructiveChanges())
		assert.Equal(t, []templatedelta.Change{&templatedelta.Deletion{Key: "sample", Artifact: templatedelta.ArtifactElement}}, delta.DestructiveChanges())
	})

	t.Run("type change uses the policy", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{
			"a": field(templatemodel.KindString, "A"),
			"b": field(templatemodel.KindInt, "B"),
		}, nil, "a", "b")
		curr := node(map[string]*templatemodel.FieldDefinition{
			"a": field(templatemodel.KindInt, "A"),
			"b": field(templatemodel.KindString, "B"),
		}, nil, "a", "b")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []templatedelta.Change{&templatedelta.TypeChange{Key: "a", OldKind: "string", NewKind: "int", Destructive: true}}, delta.DestructiveChanges())
		assert.Equal(t, []templatedelta.Change{&templatedelta.TypeChange{Key: "b", OldKind: "int", NewKind: "string"}}, delta.NonDestructiveChanges())
	})

	t.Run("type and constraint change are reported together", func(t *testing.T) {
		prevField := field(templatemodel.KindFloat, "Weight")
		currField := field(templatemodel.KindInt, "Weight")
		currField.Constraints = &templatemodel.ValueConstraints{MaxLength: intPtr(100), Required: true}

		delta := comparator.Compare(
			node(map[string]*templatemodel.FieldDefinition{"w": prevField}, nil, "w"),
			node(map[string]*templatemodel.FieldDefinition{"w": currField}, nil, "w"),
		)

		require.Len(t, delta.DestructiveChanges(), 2)
		assert.Equal(t, templatedelta.KindTypeChange, delta.DestructiveChanges()[0].Kind())
		assert.Equal(t, &templatedelta.ConstraintChange{
			Key:               "w",
			OldConstraintText: "{maxLength=100}",
			NewConstraintText: "{required=true, maxLength=100}",
			Destructive:       true,
		}, delta.DestructiveChanges()[1])
	})

	t.Run("shorter constraints are not destructive", func(t *testing.T) {
		prevField := textField("A")
		prevField.Constraints = &templatemodel.ValueConstraints{Required: true, MaxLength: intPtr(100)}
		currField := textField("A")

		delta := comparator.Compare(
			node(map[string]*templatemodel.FieldDefinition{"a": prevField}, nil, "a"),
			node(map[string]*templatemodel.FieldDefinition{"a": currField}, nil, "a"),
		)
		assert.Empty(t, delta.DestructiveChanges())
		require.Len(t, delta.NonDestructiveChanges(), 1)
		assert.Equal(t, templatedelta.KindConstraintChange, delta.NonDestructiveChanges()[0].Kind())
	})

	t.Run("ui hint changes alone are not reported", func(t *testing.T) {
		delta := comparator.Compare(
			node(map[string]*templatemodel.FieldDefinition{"a": textField("Old label")}, nil, "a"),
			node(map[string]*templatemodel.FieldDefinition{"a": textField("New label")}, nil, "a"),
		)
		assert.False(t, delta.HasChanges())
	})
}

func TestRecursiveComparison(t *testing.T) {
	comparator := NewTemplateSchemaComparator(nil)

	deep := func(leaf map[string]*templatemodel.FieldDefinition) *templatemodel.Node {
		return node(nil, map[string]*templatemodel.Node{
			"level1": node(nil, map[string]*templatemodel.Node{
				"level2": node(nil, map[string]*templatemodel.Node{
					"level3": node(leaf, nil, "value"),
				}, "level3"),
			}, "level2"),
		}, "level1")
	}

	prev := deep(map[string]*templatemodel.FieldDefinition{"value": field(templatemodel.KindFloat, "Value")})
	curr := deep(map[string]*templatemodel.FieldDefinition{"value": field(templatemodel.KindInt, "Value")})

	delta := comparator.Compare(prev, curr)
	require.Len(t, delta.DestructiveChanges(), 1)
	change, ok := delta.DestructiveChanges()[0].(*templatedelta.TypeChange)
	require.True(t, ok)
	assert.Equal(t, "level1.level2.level3", change.Path)
	assert.Equal(t, "value", change.Name())
	assert.False(t, delta.IsSafeChange())
}

func TestOrderComparison(t *testing.T) {
	comparator := NewTemplateSchemaComparator(nil)

	t.Run("pure reorder", func(t *testing.T) {
		fields := map[string]*templatemodel.FieldDefinition{"a": textField("A"), "b": field(templatemodel.KindInt, "B")}
		delta := comparator.Compare(node(fields, nil, "a", "b"), node(fields, nil, "b", "a"))

		assert.Equal(t, []templatedelta.Change{&templatedelta.OrderChange{Message: templatedelta.OrderChangedMessage}}, delta.NonDestructiveChanges())
		assert.True(t, delta.IsSafeChange())
	})

	t.Run("additions and deletions do not count as reorder", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"a": textField("A"), "b": field(templatemodel.KindInt, "B")}, nil, "a", "b")
		curr := node(map[string]*templatemodel.FieldDefinition{"x": field(templatemodel.KindEmail, "X"), "b": field(templatemodel.KindInt, "B")}, nil, "x", "b")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, 0, delta.Count(templatedelta.KindOrderChange))
	})

	t.Run("renames alone do not count as reorder", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"A": textField("First"), "B": field(templatemodel.KindInt, "Second")}, nil, "A", "B")
		curr := node(map[string]*templatemodel.FieldDefinition{"C": textField("First"), "D": field(templatemodel.KindInt, "Second")}, nil, "C", "D")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []string{
			"Field A was renamed to C",
			"Field B was renamed to D",
		}, descriptions(delta.NonDestructiveChanges()))
		assert.Empty(t, delta.DestructiveChanges())
	})

	t.Run("rename mixed with a real reorder", func(t *testing.T) {
		prev := node(map[string]*templatemodel.FieldDefinition{"A": textField("First"), "B": field(templatemodel.KindInt, "Second")}, nil, "A", "B")
		curr := node(map[string]*templatemodel.FieldDefinition{"C": textField("First"), "B": field(templatemodel.KindInt, "Second")}, nil, "B", "C")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []string{
			"Field A was renamed to C",
			"Field order changed",
		}, descriptions(delta.NonDestructiveChanges()))
	})

	t.Run("swapped identical fields", func(t *testing.T) {
		fields := map[string]*templatemodel.FieldDefinition{"a": textField("Same"), "b": textField("Same")}
		delta := comparator.Compare(node(fields, nil, "a", "b"), node(fields, nil, "b", "a"))

		assert.Equal(t, []templatedelta.Change{&templatedelta.SpecialRename{Key: "a", SwappedWithName: "b"}}, delta.NonDestructiveChanges())
	})

	t.Run("reorder inside an element", func(t *testing.T) {
		fields := map[string]*templatemodel.FieldDefinition{"a": textField("A"), "b": field(templatemodel.KindInt, "B")}
		prev := node(nil, map[string]*templatemodel.Node{"e": node(fields, nil, "a", "b")}, "e")
		curr := node(nil, map[string]*templatemodel.Node{"e": node(fields, nil, "b", "a")}, "e")

		delta := comparator.Compare(prev, curr)
		assert.Equal(t, []string{"Field order changed in element e"}, descriptions(delta.NonDestructiveChanges()))
	})

	t.Run("dangling order entries are tolerated", func(t *testing.T) {
		fields := map[string]*templatemodel.FieldDefinition{"a": textField("A")}
		prev := node(fields, nil, "a", "ghost")
		curr := node(fields, nil, "a")

		assert.NotPanics(t, func() {
			delta := comparator.Compare(prev, curr)
			assert.True(t, delta.IsSafeChange())
		})
	})
}

func TestCompareSchemasEntryPoint(t *testing.T) {
	comparator := NewTemplateSchemaComparator(policy.NewDefaultPolicy())
	delta := templatedelta.New()

	comparator.CompareSchemas(
		map[string]*templatemodel.FieldDefinition{"F1": textField("x")}, nil,
		map[string]*templatemodel.FieldDefinition{"F2": textField("x")}, nil,
		[]string{"F1"}, []string{"F2"},
		delta,
	)
	comparator.CompareSchemas(
		map[string]*templatemodel.FieldDefinition{"G": textField("g")}, nil,
		nil, nil,
		nil, nil,
		delta,
	)

	assert.Equal(t, []string{"Field F1 was renamed to F2"}, descriptions(delta.NonDestructiveChanges()))
	assert.Equal(t, []string{"Field G was removed"}, descriptions(delta.DestructiveChanges()))
}

func TestNilNodes(t *testing.T) {
	comparator := NewTemplateSchemaComparator(nil)

	assert.False(t, comparator.Compare(nil, nil).HasChanges())

	curr := node(map[string]*templatemodel.FieldDefinition{"a": textField("A")}, map[string]*templatemodel.Node{"e": nil}, "a", "e")
	delta := comparator.Compare(nil, curr)
	assert.Equal(t, 2, delta.Count(templatedelta.KindAddition))

	delta = comparator.Compare(curr, curr)
	assert.False(t, delta.HasChanges())
}

func TestParallelComparisonMatchesSequential(t *testing.T) {
	build := func(kind templatemodel.FieldKind, reversed bool) *templatemodel.Node {
		elements := make(map[string]*templatemodel.Node)
		var order []string
		for i := 0; i < 12; i++ {
			name := fmt.Sprintf("element%02d", i)
			inner := node(map[string]*templatemodel.FieldDefinition{
				"value": field(kind, "Value"),
				"note":  textField("Note"),
			}, map[string]*templatemodel.Node{
				"nested": node(map[string]*templatemodel.FieldDefinition{"deep": field(kind, "Deep")}, nil, "deep"),
			}, "value", "note", "nested")
			if reversed {
				inner.Order = []string{"note", "value", "nested"}
			}
			elements[name] = inner
			order = append(order, name)
		}
		return node(nil, elements, order...)
	}

	prev := build(templatemodel.KindFloat, false)
	curr := build(templatemodel.KindInt, true)

	sequential := NewTemplateSchemaComparator(nil).Compare(prev, curr)
	parallel := NewTemplateSchemaComparator(nil, WithParallelism(4)).Compare(prev, curr)

	require.Equal(t, 24, len(sequential.DestructiveChanges()))
	assert.Equal(t, sequential.DestructiveChanges(), parallel.DestructiveChanges())
	assert.Equal(t, sequential.NonDestructiveChanges(), parallel.NonDestructiveChanges())
	assert.Equal(t, sequential.String(), parallel.String())
}

type strictPolicy struct{}

func (strictPolicy) IsDestructiveTypeChange(string, string) bool       { return true }
func (strictPolicy) IsDestructiveConstraintChange(string, string) bool { return true }

func TestInjectedPolicy(t *testing.T) {
	comparator := NewTemplateSchemaComparator(strictPolicy{})

	prevField := field(templatemodel.KindInt, "A")
	prevField.Constraints = &templatemodel.ValueConstraints{Required: true, MaxLength: intPtr(100)}
	currField := field(templatemodel.KindString, "A")

	delta := comparator.Compare(
		node(map[string]*templatemodel.FieldDefinition{"a": prevField}, nil, "a"),
		node(map[string]*templatemodel.FieldDefinition{"a": currField}, nil, "a"),
	)
	assert.Len(t, delta.DestructiveChanges(), 2)
	assert.Empty(t, delta.NonDestructiveChanges())
}
