package comparison

import (
	"sort"

	"github.com/redbco/templatedelta/pkg/templatemodel"
)

type renamePair struct {
	oldName string
	newName string
}

// renameSet holds the accepted rename matches of one level
type renameSet struct {
	pairs    []renamePair
	oldToNew map[string]string
	newToOld map[string]string
}

// detectRenames pairs every removed field with the first added field, in key order,
// that has the same kind, UI hints and constraints. Matching is greedy: a matched
// candidate is not offered to later removed fields.
func detectRenames(oldFields, newFields map[string]*templatemodel.FieldDefinition) renameSet {
	set := renameSet{
		oldToNew: make(map[string]string),
		newToOld: make(map[string]string),
	}

	var candidates []string
	for _, name := range sortedKeys(newFields) {
		if _, exists := oldFields[name]; !exists {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return set
	}

	for _, oldName := range sortedKeys(oldFields) {
		if _, exists := newFields[oldName]; exists {
			continue
		}
		oldField := oldFields[oldName]
		for _, newName := range candidates {
			if _, taken := set.newToOld[newName]; taken {
				continue
			}
			if oldField.SameDefinition(newFields[newName]) {
				set.pairs = append(set.pairs, renamePair{oldName: oldName, newName: newName})
				set.oldToNew[oldName] = newName
				set.newToOld[newName] = oldName
				break
			}
		}
	}
	return set
}

// involves reports whether name took part in a rename on either side
func (s renameSet) involves(name string) bool {
	if _, ok := s.oldToNew[name]; ok {
		return true
	}
	_, ok := s.newToOld[name]
	return ok
}

// matches reports whether oldName was renamed to newName
func (s renameSet) matches(oldName, newName string) bool {
	renamed, ok := s.oldToNew[oldName]
	return ok && renamed == newName
}

// explainOrder reports whether the two orders have the same length and every position
// where they differ holds a rename pair, so the apparent reorder is only the renames
func (s renameSet) explainOrder(prevOrder, currOrder []string) bool {
	if len(s.pairs) == 0 || len(prevOrder) != len(currOrder) {
		return false
	}
	for i := range prevOrder {
		if prevOrder[i] != currOrder[i] && !s.matches(prevOrder[i], currOrder[i]) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
