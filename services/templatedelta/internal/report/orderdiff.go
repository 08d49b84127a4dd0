package report

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/redbco/templatedelta/pkg/templatemodel"
)

// RootElement names the template root in order diffs
const RootElement = "(root)"

// OrderDiff is a unified diff of the declared child order of one element
type OrderDiff struct {
	Element string `json:"element" yaml:"element"`
	Diff    string `json:"diff" yaml:"diff"`
}

// OrderDiffs returns a diff for every element present in both templates whose
// declared order differs, walking elements in key order
func OrderDiffs(previous, current *templatemodel.Template) []OrderDiff {
	if previous == nil || current == nil {
		return nil
	}
	var diffs []OrderDiff
	collectOrderDiffs("", &previous.Node, &current.Node, &diffs)
	return diffs
}

func collectOrderDiffs(path string, previous, current *templatemodel.Node, diffs *[]OrderDiff) {
	if previous == nil || current == nil {
		return
	}

	if !sameOrder(previous.Order, current.Order) {
		element := path
		if element == "" {
			element = RootElement
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        lines(previous.Order),
			B:        lines(current.Order),
			FromFile: "previous",
			ToFile:   "current",
			Context:  1,
		})
		if err == nil && text != "" {
			*diffs = append(*diffs, OrderDiff{Element: element, Diff: text})
		}
	}

	for _, name := range previous.ElementKeys() {
		next, ok := current.Elements[name]
		if !ok {
			continue
		}
		child := name
		if path != "" {
			child = path + "." + name
		}
		collectOrderDiffs(child, previous.Elements[name], next, diffs)
	}
}

func lines(order []string) []string {
	out := make([]string, len(order))
	for i, name := range order {
		out[i] = name + "\n"
	}
	return out
}

func sameOrder(a, b []string) bool {
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
