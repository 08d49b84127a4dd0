// Package templatedelta holds the result of comparing two template versions: a closed set
// of change primitives and the Delta that accumulates them, split into destructive and
// non-destructive sequences in discovery order.
package templatedelta

import (
	"fmt"
	"strings"
)

// Delta accumulates the changes found by one comparison run.
// It is not safe for concurrent use.
type Delta struct {
	destructive    []Change
	nonDestructive []Change
}

// New creates an empty Delta
func New() *Delta {
	return &Delta{
		destructive:    make([]Change, 0),
		nonDestructive: make([]Change, 0),
	}
}

// AddDestructiveChange appends a change to the destructive sequence
func (d *Delta) AddDestructiveChange(c Change) {
	d.destructive = append(d.destructive, c)
}

// AddNonDestructiveChange appends a change to the non-destructive sequence
func (d *Delta) AddNonDestructiveChange(c Change) {
	d.nonDestructive = append(d.nonDestructive, c)
}

// Add routes a change by its own destructiveness
func (d *Delta) Add(c Change) {
	if c.IsDestructive() {
		d.AddDestructiveChange(c)
		return
	}
	d.AddNonDestructiveChange(c)
}

// Merge appends both sequences of other, keeping their order
func (d *Delta) Merge(other *Delta) {
	if other == nil {
		return
	}
	d.destructive = append(d.destructive, other.destructive...)
	d.nonDestructive = append(d.nonDestructive, other.nonDestructive...)
}

// DestructiveChanges returns a copy of the destructive sequence
func (d *Delta) DestructiveChanges() []Change {
	return append([]Change(nil), d.destructive...)
}

// NonDestructiveChanges returns a copy of the non-destructive sequence
func (d *Delta) NonDestructiveChanges() []Change {
	return append([]Change(nil), d.nonDestructive...)
}

// HasDestructiveChanges returns true if at least one destructive change was recorded
func (d *Delta) HasDestructiveChanges() bool {
	return len(d.destructive) > 0
}

// IsSafeChange returns true if migrating data to the new version loses nothing
func (d *Delta) IsSafeChange() bool {
	return !d.HasDestructiveChanges()
}

// HasChanges returns true if any change was recorded
func (d *Delta) HasChanges() bool {
	return d.Len() > 0
}

// Len returns the total number of recorded changes
func (d *Delta) Len() int {
	return len(d.destructive) + len(d.nonDestructive)
}

// Count returns the number of recorded changes of one kind
func (d *Delta) Count(kind ChangeKind) int {
	count := 0
	for _, c := range d.destructive {
		if c.Kind() == kind {
			count++
		}
	}
	for _, c := range d.nonDestructive {
		if c.Kind() == kind {
			count++
		}
	}
	return count
}

// String returns a report of all changes grouped by kind
func (d *Delta) String() string {
	if !d.HasChanges() {
		return "no changes"
	}

	var b strings.Builder
	writeSection(&b, "Destructive changes", d.destructive)
	writeSection(&b, "Non-destructive changes", d.nonDestructive)
	return strings.TrimRight(b.String(), "\n")
}

// GroupByKind splits changes by kind, keeping discovery order within each kind
func GroupByKind(changes []Change) map[ChangeKind][]Change {
	groups := make(map[ChangeKind][]Change)
	for _, c := range changes {
		groups[c.Kind()] = append(groups[c.Kind()], c)
	}
	return groups
}

// KindOrder returns the kinds in report order
func KindOrder() []ChangeKind {
	return append([]ChangeKind(nil), changeKindOrder...)
}

// KindTitle returns the plural heading used for a kind in reports
func KindTitle(kind ChangeKind) string {
	if title, ok := changeKindTitles[kind]; ok {
		return title
	}
	return string(kind)
}

func writeSection(b *strings.Builder, title string, changes []Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(changes))

	groups := GroupByKind(changes)
	for _, kind := range changeKindOrder {
		group := groups[kind]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "  %s:\n", KindTitle(kind))
		for _, c := range group {
			fmt.Fprintf(b, "    - %s\n", c.Description())
		}
	}
}
