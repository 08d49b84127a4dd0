package templatedelta

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Record is the wire form of a single change: its type tag, its description and
// the variant fields nested under "change"
type Record struct {
	Type        ChangeKind `json:"type" yaml:"type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Change      Change     `json:"change" yaml:"change"`
}

// NewRecord wraps a change for encoding
func NewRecord(c Change) Record {
	return Record{Type: c.Kind(), Description: c.Description(), Change: c}
}

// Records wraps every change for encoding, keeping their order
func Records(changes []Change) []Record {
	records := make([]Record, 0, len(changes))
	for _, c := range changes {
		records = append(records, NewRecord(c))
	}
	return records
}

// UnmarshalJSON resolves the variant from the type tag before decoding its fields
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        ChangeKind      `json:"type"`
		Description string          `json:"description"`
		Change      json.RawMessage `json:"change"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c, err := newChange(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Change) > 0 {
		if err := json.Unmarshal(raw.Change, c); err != nil {
			return fmt.Errorf("failed to decode %s change: %w", raw.Type, err)
		}
	}

	*r = Record{Type: raw.Type, Description: raw.Description, Change: c}
	return nil
}

// UnmarshalYAML resolves the variant from the type tag before decoding its fields
func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type        ChangeKind `yaml:"type"`
		Description string     `yaml:"description"`
		Change      yaml.Node  `yaml:"change"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c, err := newChange(raw.Type)
	if err != nil {
		return err
	}
	if raw.Change.Kind != 0 {
		if err := raw.Change.Decode(c); err != nil {
			return fmt.Errorf("failed to decode %s change: %w", raw.Type, err)
		}
	}

	*r = Record{Type: raw.Type, Description: raw.Description, Change: c}
	return nil
}

type deltaDocument struct {
	Safe           bool     `json:"safe"`
	Destructive    []Record `json:"destructive"`
	NonDestructive []Record `json:"nonDestructive"`
}

// MarshalJSON encodes the delta with a type tag on every change
func (d *Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(deltaDocument{
		Safe:           d.IsSafeChange(),
		Destructive:    Records(d.destructive),
		NonDestructive: Records(d.nonDestructive),
	})
}

// UnmarshalJSON decodes a delta produced by MarshalJSON
func (d *Delta) UnmarshalJSON(data []byte) error {
	var doc deltaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	d.destructive = changesOf(doc.Destructive)
	d.nonDestructive = changesOf(doc.NonDestructive)
	return nil
}

// changesOf unwraps decoded records
func changesOf(records []Record) []Change {
	changes := make([]Change, 0, len(records))
	for _, r := range records {
		changes = append(changes, r.Change)
	}
	return changes
}

func newChange(kind ChangeKind) (Change, error) {
	switch kind {
	case KindAddition:
		return &Addition{}, nil
	case KindDeletion:
		return &Deletion{}, nil
	case KindRename:
		return &Rename{}, nil
	case KindSpecialRename:
		return &SpecialRename{}, nil
	case KindTypeChange:
		return &TypeChange{}, nil
	case KindConstraintChange:
		return &ConstraintChange{}, nil
	case KindOrderChange:
		return &OrderChange{}, nil
	default:
		return nil, fmt.Errorf("unknown change type %q", kind)
	}
}
