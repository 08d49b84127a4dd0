// Package report renders comparison results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/redbco/templatedelta/pkg/templatedelta"
	"github.com/redbco/templatedelta/pkg/templatemodel"
	"github.com/redbco/templatedelta/services/templatedelta/internal/engine"
)

// Format selects the output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text, json or yaml)", s)
	}
}

// Options controls rendering
type Options struct {
	Format    Format
	Color     bool
	OrderDiff bool
}

// TemplateRef identifies one side of the comparison
type TemplateRef struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Document is the machine readable report
type Document struct {
	RunID          string                 `json:"runId" yaml:"runId"`
	Previous       TemplateRef            `json:"previous" yaml:"previous"`
	Current        TemplateRef            `json:"current" yaml:"current"`
	Safe           bool                   `json:"safe" yaml:"safe"`
	Destructive    []templatedelta.Record `json:"destructive" yaml:"destructive"`
	NonDestructive []templatedelta.Record `json:"nonDestructive" yaml:"nonDestructive"`
	OrderDiffs     []OrderDiff            `json:"orderDiffs,omitempty" yaml:"orderDiffs,omitempty"`
}

// Write renders result to w in the requested format
func Write(w io.Writer, result *engine.Result, opts Options) error {
	if result == nil || result.Delta == nil {
		return fmt.Errorf("no comparison result to render")
	}

	switch opts.Format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(NewDocument(result, opts.OrderDiff))
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(NewDocument(result, opts.OrderDiff)); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return encoder.Close()
	case FormatText, "":
		return writeText(w, result, opts)
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

// NewDocument builds the machine readable form of result
func NewDocument(result *engine.Result, withOrderDiffs bool) *Document {
	doc := &Document{
		RunID:          result.RunID.String(),
		Previous:       refOf(result.Previous),
		Current:        refOf(result.Current),
		Safe:           result.Delta.IsSafeChange(),
		Destructive:    templatedelta.Records(result.Delta.DestructiveChanges()),
		NonDestructive: templatedelta.Records(result.Delta.NonDestructiveChanges()),
	}
	if withOrderDiffs {
		doc.OrderDiffs = OrderDiffs(result.Previous, result.Current)
	}
	return doc
}

func refOf(t *templatemodel.Template) TemplateRef {
	if t == nil {
		return TemplateRef{}
	}
	return TemplateRef{Name: t.Name, Version: t.Version}
}

type palette struct {
	header      *color.Color
	safe        *color.Color
	unsafe      *color.Color
	destructive *color.Color
	benign      *color.Color
	kind        *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:      color.New(color.Bold),
		safe:        color.New(color.FgGreen, color.Bold),
		unsafe:      color.New(color.FgRed, color.Bold),
		destructive: color.New(color.FgRed),
		benign:      color.New(color.FgYellow),
		kind:        color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.header, p.safe, p.unsafe, p.destructive, p.benign, p.kind} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func writeText(w io.Writer, result *engine.Result, opts Options) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s -> %s\n", p.header.Sprint("Template comparison"),
		describeRef(refOf(result.Previous)), describeRef(refOf(result.Current)))
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)

	delta := result.Delta
	switch {
	case !delta.HasChanges():
		fmt.Fprintf(&b, "Status: %s\n", p.safe.Sprint("SAFE"))
		b.WriteString("No changes\n")
	case delta.IsSafeChange():
		fmt.Fprintf(&b, "Status: %s\n", p.safe.Sprint("SAFE"))
	default:
		fmt.Fprintf(&b, "Status: %s\n", p.unsafe.Sprint("DESTRUCTIVE"))
	}

	writeChanges(&b, p, "Destructive changes", delta.DestructiveChanges(), p.destructive)
	writeChanges(&b, p, "Non-destructive changes", delta.NonDestructiveChanges(), p.benign)

	if opts.OrderDiff {
		for _, diff := range OrderDiffs(result.Previous, result.Current) {
			fmt.Fprintf(&b, "\n%s\n%s", p.header.Sprintf("Order of %s", diff.Element), diff.Diff)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeChanges(b *strings.Builder, p palette, title string, changes []templatedelta.Change, c *color.Color) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", p.header.Sprint(title), len(changes))

	groups := templatedelta.GroupByKind(changes)
	for _, kind := range templatedelta.KindOrder() {
		group := groups[kind]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "  %s:\n", p.kind.Sprint(templatedelta.KindTitle(kind)))
		for _, change := range group {
			fmt.Fprintf(b, "    - %s\n", c.Sprint(change.Description()))
		}
	}
}

func describeRef(ref TemplateRef) string {
	switch {
	case ref.Name == "" && ref.Version == "":
		return "(unnamed)"
	case ref.Version == "":
		return ref.Name
	case ref.Name == "":
		return ref.Version
	default:
		return ref.Name + " " + ref.Version
	}
}
