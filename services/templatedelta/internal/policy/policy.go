// Package policy decides whether a detected type or constraint change is destructive.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/templatedelta/pkg/templatemodel"
)

// Policy classifies changes that are not destructive by definition
type Policy interface {
	// IsDestructiveTypeChange reports whether converting stored values from oldKind to newKind loses data
	IsDestructiveTypeChange(oldKind, newKind string) bool
	// IsDestructiveConstraintChange reports whether a constraint change may invalidate stored values
	IsDestructiveConstraintChange(oldText, newText string) bool
}

// KindPair is one lossy conversion
type KindPair struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`
}

func (p KindPair) String() string {
	return p.From + "->" + p.To
}

// ParseKindPair parses the "old->new" notation used in configuration files
func ParseKindPair(s string) (KindPair, error) {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return KindPair{}, fmt.Errorf("invalid type change %q: expected old->new", s)
	}
	pair := normalizePair(KindPair{From: from, To: to})
	if pair.From == "" || pair.To == "" {
		return KindPair{}, fmt.Errorf("invalid type change %q: empty kind", s)
	}
	return pair, nil
}

// lossyConversions are the built-in destructive kind transitions.
// Every pair not listed here, including unknown kinds, is treated as safe.
var lossyConversions = []KindPair{
	{"string", "int"},
	{"string", "float"},
	{"string", "numeric"},
	{"float", "int"},
	{"numeric", "int"},
	{"text", "int"},
	{"text", "float"},
	{"text", "numeric"},
	{"text", "temporal"},
	{"text", "boolean"},
	{"textarea", "text"},
	{"rich-text", "text"},
	{"rich-text", "textarea"},
	{"list", "radio"},
	{"checkbox", "radio"},
}

// DefaultPolicy is the deny-list type rule combined with the constraint length rule
type DefaultPolicy struct {
	denied map[KindPair]struct{}
}

// NewDefaultPolicy creates the policy with the built-in deny-list plus any extra pairs
func NewDefaultPolicy(extra ...KindPair) *DefaultPolicy {
	p := &DefaultPolicy{denied: make(map[KindPair]struct{}, len(lossyConversions)+len(extra))}
	for _, pair := range lossyConversions {
		p.Deny(pair)
	}
	for _, pair := range extra {
		p.Deny(pair)
	}
	return p
}

// Deny adds a destructive transition
func (p *DefaultPolicy) Deny(pair KindPair) {
	if p.denied == nil {
		p.denied = make(map[KindPair]struct{})
	}
	p.denied[normalizePair(pair)] = struct{}{}
}

// DenyList returns the destructive transitions sorted by source then target kind
func (p *DefaultPolicy) DenyList() []KindPair {
	pairs := make([]KindPair, 0, len(p.denied))
	for pair := range p.denied {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})
	return pairs
}

// IsDestructiveTypeChange looks the normalized pair up in the deny-list
func (p *DefaultPolicy) IsDestructiveTypeChange(oldKind, newKind string) bool {
	_, denied := p.denied[normalizePair(KindPair{From: oldKind, To: newKind})]
	return denied
}

// IsDestructiveConstraintChange treats constraints whose rendering grew as destructive.
//
// This is a length proxy, not a semantic comparison: dropping a bound shortens the text
// and is classified safe, adding any rule lengthens it and is classified destructive.
func (p *DefaultPolicy) IsDestructiveConstraintChange(oldText, newText string) bool {
	return len(oldText) < len(newText)
}

func normalizePair(pair KindPair) KindPair {
	return KindPair{From: canonicalKind(pair.From), To: canonicalKind(pair.To)}
}

// canonicalKind resolves known kinds and their aliases the way template documents do;
// unknown names are only normalized
func canonicalKind(name string) string {
	if kind, err := templatemodel.ParseFieldKind(name); err == nil {
		return kind.String()
	}
	return templatemodel.NormalizeKindName(name)
}
