package templatemodel

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateKey is returned when a key is declared twice within one node
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidDocument is returned when the document does not have the expected shape
	ErrInvalidDocument = errors.New("invalid template document")
)

// rawField mirrors a field entry of a template document before kind resolution
type rawField struct {
	Kind        string            `yaml:"kind"`
	UI          *UIHints          `yaml:"ui"`
	Constraints *ValueConstraints `yaml:"constraints"`
}

// rawNode keeps fields and elements as yaml nodes so declaration order survives decoding
type rawNode struct {
	Order    []string  `yaml:"order"`
	Fields   yaml.Node `yaml:"fields"`
	Elements yaml.Node `yaml:"elements"`
}

type rawTemplate struct {
	Name     string    `yaml:"name"`
	Version  string    `yaml:"version"`
	Order    []string  `yaml:"order"`
	Fields   yaml.Node `yaml:"fields"`
	Elements yaml.Node `yaml:"elements"`
}

// ReadTemplateFile reads and parses a template document from disk
func ReadTemplateFile(path string) (*Template, error) {
	//nolint:gosec // path is supplied by the caller on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	template, err := ReadTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return template, nil
}

// ReadTemplate parses a YAML or JSON template document.
//
// When the document declares no order for a node, the order defaults to the field keys
// followed by the element keys, each in document order. Order entries that reference
// undeclared keys are kept as written.
func ReadTemplate(data []byte) (*Template, error) {
	var raw rawTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	node, err := buildNode("", &rawNode{
		Order:    raw.Order,
		Fields:   raw.Fields,
		Elements: raw.Elements,
	})
	if err != nil {
		return nil, err
	}

	return &Template{
		Name:    raw.Name,
		Version: raw.Version,
		Node:    *node,
	}, nil
}

func buildNode(path string, raw *rawNode) (*Node, error) {
	node := NewNode()
	var declared []string

	fieldKeys, err := mappingPairs(path, "fields", &raw.Fields)
	if err != nil {
		return nil, err
	}
	for _, pair := range fieldKeys {
		var rf rawField
		if err := pair.value.Decode(&rf); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidDocument, join(path, pair.key), err)
		}
		kind, err := ParseFieldKind(rf.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", join(path, pair.key), err)
		}
		field := &FieldDefinition{
			Kind:        kind,
			UI:          rf.UI,
			Constraints: rf.Constraints,
		}
		if field.UI == nil {
			field.UI = &UIHints{}
		}
		if field.Constraints == nil {
			field.Constraints = &ValueConstraints{}
		}
		node.Fields[pair.key] = field
		declared = append(declared, pair.key)
	}

	elementKeys, err := mappingPairs(path, "elements", &raw.Elements)
	if err != nil {
		return nil, err
	}
	for _, pair := range elementKeys {
		elementPath := join(path, pair.key)
		if _, clash := node.Fields[pair.key]; clash {
			return nil, fmt.Errorf("%w: %s is declared as both field and element", ErrDuplicateKey, elementPath)
		}

		var child rawNode
		if err := pair.value.Decode(&child); err != nil {
			return nil, fmt.Errorf("%w: element %s: %v", ErrInvalidDocument, elementPath, err)
		}
		element, err := buildNode(elementPath, &child)
		if err != nil {
			return nil, err
		}
		node.Elements[pair.key] = element
		declared = append(declared, pair.key)
	}

	if raw.Order != nil {
		node.Order = append([]string(nil), raw.Order...)
	} else {
		node.Order = declared
	}
	return node, nil
}

type keyValue struct {
	key   string
	value *yaml.Node
}

// mappingPairs returns the entries of a mapping node in document order
func mappingPairs(path, section string, n *yaml.Node) ([]keyValue, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s of %s must be a mapping", ErrInvalidDocument, section, describe(path))
	}

	pairs := make([]keyValue, 0, len(n.Content)/2)
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s in %s of %s", ErrDuplicateKey, key, section, describe(path))
		}
		seen[key] = struct{}{}
		pairs = append(pairs, keyValue{key: key, value: n.Content[i+1]})
	}
	return pairs, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func describe(path string) string {
	if path == "" {
		return "template"
	}
	return "element " + path
}
