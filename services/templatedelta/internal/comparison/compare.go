package comparison

import (
	"golang.org/x/sync/errgroup"

	"github.com/redbco/templatedelta/pkg/templatedelta"
	"github.com/redbco/templatedelta/pkg/templatemodel"
	"github.com/redbco/templatedelta/services/templatedelta/internal/policy"
)

// TemplateSchemaComparator walks two template trees and classifies their differences
type TemplateSchemaComparator struct {
	policy      policy.Policy
	parallelism int
}

// Option configures a TemplateSchemaComparator
type Option func(*TemplateSchemaComparator)

// WithParallelism compares the top-level elements on up to workers goroutines.
// The resulting Delta is identical to a sequential run.
func WithParallelism(workers int) Option {
	return func(c *TemplateSchemaComparator) {
		c.parallelism = workers
	}
}

// NewTemplateSchemaComparator creates a comparator; a nil policy selects the default policy
func NewTemplateSchemaComparator(p policy.Policy, opts ...Option) *TemplateSchemaComparator {
	if p == nil {
		p = policy.NewDefaultPolicy()
	}
	c := &TemplateSchemaComparator{policy: p}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// level is the part of a node the comparison looks at
type level struct {
	fields   map[string]*templatemodel.FieldDefinition
	elements map[string]*templatemodel.Node
	order    []string
}

func levelOf(n *templatemodel.Node) level {
	if n == nil {
		return level{}
	}
	return level{fields: n.Fields, elements: n.Elements, order: n.Order}
}

func (l level) has(name string) bool {
	if _, ok := l.fields[name]; ok {
		return true
	}
	_, ok := l.elements[name]
	return ok
}

// Compare compares two template trees and returns one Delta for the whole tree.
// Nil nodes are compared as empty nodes.
func (c *TemplateSchemaComparator) Compare(previous, current *templatemodel.Node) *templatedelta.Delta {
	delta := templatedelta.New()
	prev, curr := levelOf(previous), levelOf(current)
	c.CompareSchemas(prev.fields, prev.elements, curr.fields, curr.elements, prev.order, curr.order, delta)
	return delta
}

// CompareSchemas compares one level of two trees and recurses into the elements present
// in both, appending every change to delta.
func (c *TemplateSchemaComparator) CompareSchemas(
	oldFields map[string]*templatemodel.FieldDefinition,
	oldElements map[string]*templatemodel.Node,
	newFields map[string]*templatemodel.FieldDefinition,
	newElements map[string]*templatemodel.Node,
	oldOrder, newOrder []string,
	delta *templatedelta.Delta,
) {
	prev := level{fields: oldFields, elements: oldElements, order: oldOrder}
	curr := level{fields: newFields, elements: newElements, order: newOrder}
	c.compareLevel("", prev, curr, delta, c.parallelism)
}

func (c *TemplateSchemaComparator) compareLevel(path string, prev, curr level, delta *templatedelta.Delta, workers int) {
	renames := detectRenames(prev.fields, curr.fields)
	for _, pair := range renames.pairs {
		delta.AddNonDestructiveChange(&templatedelta.Rename{Path: path, OldName: pair.oldName, NewName: pair.newName})
	}

	c.compareAdditions(path, prev, curr, renames, delta)
	c.compareDeletions(path, prev, curr, renames, delta)
	c.compareFields(path, prev, curr, renames, delta)
	c.compareElements(path, prev, curr, delta, workers)
	c.compareOrder(path, prev, curr, renames, delta)
}

func (c *TemplateSchemaComparator) compareAdditions(path string, prev, curr level, renames renameSet, delta *templatedelta.Delta) {
	for _, name := range sortedKeys(curr.fields) {
		if _, exists := prev.fields[name]; exists {
			continue
		}
		if _, renamed := renames.newToOld[name]; renamed {
			continue
		}
		delta.AddNonDestructiveChange(&templatedelta.Addition{Path: path, Key: name, Artifact: templatedelta.ArtifactField})
	}

	for _, name := range sortedKeys(curr.elements) {
		if _, exists := prev.elements[name]; !exists {
			delta.AddNonDestructiveChange(&templatedelta.Addition{Path: path, Key: name, Artifact: templatedelta.ArtifactElement})
		}
	}
}

func (c *TemplateSchemaComparator) compareDeletions(path string, prev, curr level, renames renameSet, delta *templatedelta.Delta) {
	for _, name := range sortedKeys(prev.fields) {
		if _, exists := curr.fields[name]; exists {
			continue
		}
		if _, renamed := renames.oldToNew[name]; renamed {
			continue
		}
		delta.AddDestructiveChange(&templatedelta.Deletion{Path: path, Key: name, Artifact: templatedelta.ArtifactField})
	}

	for _, name := range sortedKeys(prev.elements) {
		if _, exists := curr.elements[name]; !exists {
			delta.AddDestructiveChange(&templatedelta.Deletion{Path: path, Key: name, Artifact: templatedelta.ArtifactElement})
		}
	}
}

// compareFields checks type and constraints of the fields present under the same key in both versions
func (c *TemplateSchemaComparator) compareFields(path string, prev, curr level, renames renameSet, delta *templatedelta.Delta) {
	for _, name := range sortedKeys(prev.fields) {
		currField, exists := curr.fields[name]
		if !exists || renames.involves(name) {
			continue
		}
		prevField := prev.fields[name]

		prevKind, currKind := kindOf(prevField), kindOf(currField)
		if prevKind != currKind {
			delta.Add(&templatedelta.TypeChange{
				Path:        path,
				Key:         name,
				OldKind:     prevKind,
				NewKind:     currKind,
				Destructive: c.policy.IsDestructiveTypeChange(prevKind, currKind),
			})
		}

		prevText, currText := prevField.ConstraintText(), currField.ConstraintText()
		if prevText != currText {
			delta.Add(&templatedelta.ConstraintChange{
				Path:              path,
				Key:               name,
				OldConstraintText: prevText,
				NewConstraintText: currText,
				Destructive:       c.policy.IsDestructiveConstraintChange(prevText, currText),
			})
		}
	}
}

// compareElements recurses into the elements present in both versions, in key order
func (c *TemplateSchemaComparator) compareElements(path string, prev, curr level, delta *templatedelta.Delta, workers int) {
	var common []string
	for _, name := range sortedKeys(prev.elements) {
		if _, exists := curr.elements[name]; exists {
			common = append(common, name)
		}
	}

	if workers <= 1 || len(common) < 2 {
		for _, name := range common {
			c.compareLevel(joinPath(path, name), levelOf(prev.elements[name]), levelOf(curr.elements[name]), delta, 0)
		}
		return
	}

	// Each branch fills a private delta; merging in key order keeps the output reproducible.
	branches := make([]*templatedelta.Delta, len(common))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, name := range common {
		i, name := i, name
		g.Go(func() error {
			branch := templatedelta.New()
			c.compareLevel(joinPath(path, name), levelOf(prev.elements[name]), levelOf(curr.elements[name]), branch, 0)
			branches[i] = branch
			return nil
		})
	}
	_ = g.Wait()

	for _, branch := range branches {
		delta.Merge(branch)
	}
}

// compareOrder reports a changed child order once additions and deletions are filtered out
func (c *TemplateSchemaComparator) compareOrder(path string, prev, curr level, renames renameSet, delta *templatedelta.Delta) {
	prevOrder := filterOrder(prev.order, func(name string) bool {
		_, renamed := renames.oldToNew[name]
		return curr.has(name) || renamed
	})
	currOrder := filterOrder(curr.order, func(name string) bool {
		_, renamed := renames.newToOld[name]
		return prev.has(name) || renamed
	})

	if equalOrder(prevOrder, currOrder) {
		return
	}

	if renames.explainOrder(prevOrder, currOrder) {
		return
	}

	if oldName, newName, ok := findSpecialRename(prevOrder, currOrder, prev, curr, renames); ok {
		delta.AddNonDestructiveChange(&templatedelta.SpecialRename{Path: path, Key: oldName, SwappedWithName: newName})
		return
	}

	delta.AddNonDestructiveChange(&templatedelta.OrderChange{Path: path, Message: templatedelta.OrderChangedMessage})
}

// findSpecialRename checks whether every positional mismatch pairs two structurally
// identical fields stored under different keys, and returns the first such pair.
func findSpecialRename(prevOrder, currOrder []string, prev, curr level, renames renameSet) (string, string, bool) {
	if len(prevOrder) != len(currOrder) {
		return "", "", false
	}

	var oldName, newName string
	found := false
	for i := range prevOrder {
		if prevOrder[i] == currOrder[i] || renames.matches(prevOrder[i], currOrder[i]) {
			continue
		}
		prevField, ok := prev.fields[prevOrder[i]]
		if !ok {
			return "", "", false
		}
		currField, ok := curr.fields[currOrder[i]]
		if !ok || !prevField.SameDefinition(currField) {
			return "", "", false
		}
		if !found {
			oldName, newName, found = prevOrder[i], currOrder[i], true
		}
	}
	return oldName, newName, found
}

func filterOrder(order []string, keep func(string) bool) []string {
	filtered := make([]string, 0, len(order))
	for _, name := range order {
		if keep(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func kindOf(f *templatemodel.FieldDefinition) string {
	if f == nil {
		return ""
	}
	return string(f.Kind)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
