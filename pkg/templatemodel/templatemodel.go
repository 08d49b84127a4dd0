// Package templatemodel provides the parsed representation of a metadata template:
// a tree of nodes, where every node owns leaf fields, nested elements and a declared
// child order. Templates and elements share the same node shape so elements can nest
// to any depth.
package templatemodel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Template is the root node of a template document
type Template struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Node    `yaml:",inline"`
}

// Node is a template or an element
type Node struct {
	Fields   map[string]*FieldDefinition `json:"fields,omitempty" yaml:"fields,omitempty"`
	Elements map[string]*Node            `json:"elements,omitempty" yaml:"elements,omitempty"`
	Order    []string                    `json:"order,omitempty" yaml:"order,omitempty"`
}

// FieldDefinition describes one leaf field
type FieldDefinition struct {
	Kind        FieldKind         `json:"kind" yaml:"kind"`
	UI          *UIHints          `json:"ui,omitempty" yaml:"ui,omitempty"`
	Constraints *ValueConstraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// UIHints describes how a field is presented. It is compared as a whole and never interpreted.
type UIHints struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	InputType   string `json:"input,omitempty" yaml:"input,omitempty"`
	Help        string `json:"help,omitempty" yaml:"help,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Hidden      bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// ValueConstraints holds the validation rules of a field
type ValueConstraints struct {
	Required       bool     `json:"required,omitempty" yaml:"required,omitempty"`
	DefaultValue   string   `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MinLength      *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength      *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinValue       *float64 `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue       *float64 `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	DecimalPlaces  *int     `json:"decimalPlaces,omitempty" yaml:"decimalPlaces,omitempty"`
	Unit           string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Granularity    string   `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	MultipleChoice bool     `json:"multipleChoice,omitempty" yaml:"multipleChoice,omitempty"`
	Literals       []string `json:"literals,omitempty" yaml:"literals,omitempty"`
}

// NewNode creates a Node with all maps initialized
func NewNode() *Node {
	return &Node{
		Fields:   make(map[string]*FieldDefinition),
		Elements: make(map[string]*Node),
	}
}

// ElementKeys returns the element keys in lexicographic order
func (n *Node) ElementKeys() []string {
	if n == nil {
		return nil
	}
	return sortedKeys(n.Elements)
}

// Depth returns the number of element levels below this node, counting the node itself
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, element := range n.Elements {
		if d := element.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// FieldCount returns the number of fields in this node and all nested elements
func (n *Node) FieldCount() int {
	if n == nil {
		return 0
	}
	count := len(n.Fields)
	for _, element := range n.Elements {
		count += element.FieldCount()
	}
	return count
}

// SameDefinition reports whether two fields are structurally identical: same kind,
// equal UI hints and equal constraints. Missing hints or constraints never match.
func (f *FieldDefinition) SameDefinition(other *FieldDefinition) bool {
	if f == nil || other == nil {
		return false
	}
	if f.Kind != other.Kind {
		return false
	}
	if f.UI == nil || other.UI == nil || *f.UI != *other.UI {
		return false
	}
	if f.Constraints == nil || other.Constraints == nil {
		return false
	}
	return f.Constraints.Equal(other.Constraints)
}

// ConstraintText returns the rendered constraints of the field, empty when it has none
func (f *FieldDefinition) ConstraintText() string {
	if f == nil || f.Constraints == nil {
		return ""
	}
	return f.Constraints.String()
}

// Equal compares two constraint sets value by value
func (c *ValueConstraints) Equal(other *ValueConstraints) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.String() == other.String()
}

// String renders the constraints as "key=value" pairs in a fixed key order.
// Unset values are omitted, so an empty constraint set renders as "{}".
func (c *ValueConstraints) String() string {
	if c == nil {
		return ""
	}

	var parts []string
	if c.Required {
		parts = append(parts, "required=true")
	}
	if c.DefaultValue != "" {
		parts = append(parts, "defaultValue="+strconv.Quote(c.DefaultValue))
	}
	if c.MinLength != nil {
		parts = append(parts, "minLength="+strconv.Itoa(*c.MinLength))
	}
	if c.MaxLength != nil {
		parts = append(parts, "maxLength="+strconv.Itoa(*c.MaxLength))
	}
	if c.MinValue != nil {
		parts = append(parts, "minValue="+strconv.FormatFloat(*c.MinValue, 'g', -1, 64))
	}
	if c.MaxValue != nil {
		parts = append(parts, "maxValue="+strconv.FormatFloat(*c.MaxValue, 'g', -1, 64))
	}
	if c.DecimalPlaces != nil {
		parts = append(parts, "decimalPlaces="+strconv.Itoa(*c.DecimalPlaces))
	}
	if c.Unit != "" {
		parts = append(parts, "unit="+strconv.Quote(c.Unit))
	}
	if c.Granularity != "" {
		parts = append(parts, "granularity="+c.Granularity)
	}
	if c.MultipleChoice {
		parts = append(parts, "multipleChoice=true")
	}
	if len(c.Literals) > 0 {
		quoted := make([]string, len(c.Literals))
		for i, literal := range c.Literals {
			quoted[i] = strconv.Quote(literal)
		}
		parts = append(parts, fmt.Sprintf("literals=[%s]", strings.Join(quoted, ",")))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
