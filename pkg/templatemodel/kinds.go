package templatemodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// FieldKind identifies the concrete implementation of a template field
type FieldKind string

const (
	// Free text types
	KindText     FieldKind = "text"
	KindTextArea FieldKind = "textarea"
	KindRichText FieldKind = "rich-text"
	KindString   FieldKind = "string"

	// Numeric types
	KindInt     FieldKind = "int"
	KindFloat   FieldKind = "float"
	KindNumeric FieldKind = "numeric"

	// Scalar types
	KindBoolean  FieldKind = "boolean"
	KindTemporal FieldKind = "temporal"

	// Formatted text types
	KindEmail       FieldKind = "email"
	KindLink        FieldKind = "link"
	KindPhoneNumber FieldKind = "phone-number"

	// Choice types
	KindRadio    FieldKind = "radio"
	KindCheckbox FieldKind = "checkbox"
	KindList     FieldKind = "list"

	// Semantic types
	KindAttributeValue FieldKind = "attribute-value"
	KindControlledTerm FieldKind = "controlled-term"
)

// ErrUnknownFieldKind is returned when a kind identifier is not part of the closed set
var ErrUnknownFieldKind = errors.New("unknown field kind")

var knownKinds = map[FieldKind]struct{}{
	KindText:           {},
	KindTextArea:       {},
	KindRichText:       {},
	KindString:         {},
	KindInt:            {},
	KindFloat:          {},
	KindNumeric:        {},
	KindBoolean:        {},
	KindTemporal:       {},
	KindEmail:          {},
	KindLink:           {},
	KindPhoneNumber:    {},
	KindRadio:          {},
	KindCheckbox:       {},
	KindList:           {},
	KindAttributeValue: {},
	KindControlledTerm: {},
}

// kindAliases maps common spellings onto the canonical identifier
var kindAliases = map[string]FieldKind{
	"integer":   KindInt,
	"double":    KindFloat,
	"decimal":   KindNumeric,
	"number":    KindNumeric,
	"bool":      KindBoolean,
	"date":      KindTemporal,
	"date-time": KindTemporal,
	"datetime":  KindTemporal,
	"url":       KindLink,
	"phone":     KindPhoneNumber,
	"multiline": KindTextArea,
}

// NormalizeKindName lower-cases an identifier and joins its words with hyphens.
// "TextField", "text_field" and "Text Field" all become "text-field".
func NormalizeKindName(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ParseFieldKind resolves an identifier to one of the known field kinds.
// A trailing "-field" word is ignored so that class-style names resolve too.
func ParseFieldKind(name string) (FieldKind, error) {
	normalized := NormalizeKindName(name)
	normalized = strings.TrimSuffix(normalized, "-field")

	if _, ok := knownKinds[FieldKind(normalized)]; ok {
		return FieldKind(normalized), nil
	}
	if kind, ok := kindAliases[normalized]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFieldKind, name)
}

// IsValid reports whether the kind belongs to the closed set
func (k FieldKind) IsValid() bool {
	_, ok := knownKinds[k]
	return ok
}

func (k FieldKind) String() string {
	return string(k)
}

// AllFieldKinds returns every known kind, sorted
func AllFieldKinds() []FieldKind {
	kinds := make([]FieldKind, 0, len(knownKinds))
	for kind := range knownKinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
