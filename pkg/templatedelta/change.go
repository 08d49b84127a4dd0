package templatedelta

import "fmt"

// ChangeKind identifies one of the diff primitives
type ChangeKind string

const (
	KindAddition         ChangeKind = "addition"
	KindDeletion         ChangeKind = "deletion"
	KindRename           ChangeKind = "rename"
	KindSpecialRename    ChangeKind = "special-rename"
	KindTypeChange       ChangeKind = "type-change"
	KindConstraintChange ChangeKind = "constraint-change"
	KindOrderChange      ChangeKind = "order-change"
)

// changeKindOrder is the order in which kinds are grouped in reports
var changeKindOrder = []ChangeKind{
	KindDeletion,
	KindTypeChange,
	KindConstraintChange,
	KindAddition,
	KindRename,
	KindSpecialRename,
	KindOrderChange,
}

var changeKindTitles = map[ChangeKind]string{
	KindAddition:         "Additions",
	KindDeletion:         "Deletions",
	KindRename:           "Renames",
	KindSpecialRename:    "Swapped fields",
	KindTypeChange:       "Type changes",
	KindConstraintChange: "Constraint changes",
	KindOrderChange:      "Order changes",
}

// ArtifactKind tells whether an added or deleted key was a field or an element
type ArtifactKind string

const (
	ArtifactField   ArtifactKind = "field"
	ArtifactElement ArtifactKind = "element"
)

// OrderChangedMessage is the fixed description of a generic order change
const OrderChangedMessage = "Field order changed"

// Change is a single difference between two template versions
type Change interface {
	// Kind returns the diff primitive of the change
	Kind() ChangeKind
	// Name returns the affected key; empty for order changes
	Name() string
	// IsDestructive reports whether existing data may be invalidated or orphaned
	IsDestructive() bool
	// Description returns a human-readable sentence
	Description() string
}

// Addition is a field or element that only exists in the new version
type Addition struct {
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Key      string       `json:"name" yaml:"name"`
	Artifact ArtifactKind `json:"artifact" yaml:"artifact"`
}

// Deletion is a field or element that only exists in the old version
type Deletion struct {
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Key      string       `json:"name" yaml:"name"`
	Artifact ArtifactKind `json:"artifact" yaml:"artifact"`
}

// Rename is a field whose key changed while its definition stayed identical
type Rename struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	OldName string `json:"oldName" yaml:"oldName"`
	NewName string `json:"newName" yaml:"newName"`
}

// SpecialRename is a pair of identical fields that traded positions in the order
type SpecialRename struct {
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
	Key             string `json:"name" yaml:"name"`
	SwappedWithName string `json:"swappedWithName" yaml:"swappedWithName"`
}

// TypeChange is a field whose kind changed
type TypeChange struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Key         string `json:"name" yaml:"name"`
	OldKind     string `json:"oldKind" yaml:"oldKind"`
	NewKind     string `json:"newKind" yaml:"newKind"`
	Destructive bool   `json:"destructive" yaml:"destructive"`
}

// ConstraintChange is a field whose rendered constraints changed
type ConstraintChange struct {
	Path              string `json:"path,omitempty" yaml:"path,omitempty"`
	Key               string `json:"name" yaml:"name"`
	OldConstraintText string `json:"oldConstraintText" yaml:"oldConstraintText"`
	NewConstraintText string `json:"newConstraintText" yaml:"newConstraintText"`
	Destructive       bool   `json:"destructive" yaml:"destructive"`
}

// OrderChange reports that the declared child order of a node changed
type OrderChange struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Message string `json:"description" yaml:"description"`
}

func (c *Addition) Kind() ChangeKind { return KindAddition }
func (c *Addition) Name() string { return c.Key }
func (c *Addition) IsDestructive() bool { return false }

func (c *Deletion) Kind() ChangeKind { return KindDeletion }
func (c *Deletion) Name() string { return c.Key }
func (c *Deletion) IsDestructive() bool { return true }

func (c *Rename) Kind() ChangeKind { return KindRename }
func (c *Rename) Name() string { return c.OldName }
func (c *Rename) IsDestructive() bool { return false }

func (c *SpecialRename) Kind() ChangeKind { return KindSpecialRename }
func (c *SpecialRename) Name() string { return c.Key }
func (c *SpecialRename) IsDestructive() bool { return false }

func (c *TypeChange) Kind() ChangeKind { return KindTypeChange }
func (c *TypeChange) Name() string { return c.Key }
func (c *TypeChange) IsDestructive() bool { return c.Destructive }

func (c *ConstraintChange) Kind() ChangeKind { return KindConstraintChange }
func (c *ConstraintChange) Name() string { return c.Key }
func (c *ConstraintChange) IsDestructive() bool { return c.Destructive }

func (c *OrderChange) Kind() ChangeKind { return KindOrderChange }
func (c *OrderChange) Name() string { return "" }
func (c *OrderChange) IsDestructive() bool { return false }

func (c *Addition) Description() string {
	return fmt.Sprintf("%s %s was added", artifactTitle(c.Artifact), qualify(c.Path, c.Key))
}

func (c *Deletion) Description() string {
	return fmt.Sprintf("%s %s was removed", artifactTitle(c.Artifact), qualify(c.Path, c.Key))
}

func (c *Rename) Description() string {
	return fmt.Sprintf("Field %s was renamed to %s", qualify(c.Path, c.OldName), c.NewName)
}

func (c *SpecialRename) Description() string {
	return fmt.Sprintf("Field %s was swapped with %s", qualify(c.Path, c.Key), c.SwappedWithName)
}

func (c *TypeChange) Description() string {
	return fmt.Sprintf("Field %s changed type from %s to %s", qualify(c.Path, c.Key), c.OldKind, c.NewKind)
}

func (c *ConstraintChange) Description() string {
	return fmt.Sprintf("Field %s constraints changed from %s to %s",
		qualify(c.Path, c.Key), orNone(c.OldConstraintText), orNone(c.NewConstraintText))
}

func (c *OrderChange) Description() string {
	if c.Path == "" {
		return c.Message
	}
	return fmt.Sprintf("%s in element %s", c.Message, c.Path)
}

func artifactTitle(kind ArtifactKind) string {
	if kind == ArtifactElement {
		return "Element"
	}
	return "Field"
}

func qualify(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func orNone(text string) string {
	if text == "" {
		return "(none)"
	}
	return text
}
