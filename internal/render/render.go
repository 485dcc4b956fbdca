// Package render writes estimates, capacity reports, and device
// inventories as text tables, JSON, or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json, or yaml)", s)
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("format %q is not a structured encoding", f)
}

// Palette colors text output. The zero value prints plain text.
type Palette struct {
	Enabled bool
}

func (p Palette) paint(c text.Colors, s string) string {
	if !p.Enabled {
		return s
	}
	return c.Sprint(s)
}

func (p Palette) OK(s string) string   { return p.paint(text.Colors{text.FgGreen}, s) }
func (p Palette) Fail(s string) string { return p.paint(text.Colors{text.FgRed, text.Bold}, s) }
func (p Palette) Warn(s string) string { return p.paint(text.Colors{text.FgYellow}, s) }
func (p Palette) Bold(s string) string { return p.paint(text.Colors{text.Bold}, s) }

const gib = 1 << 30

// GB formats a byte count in binary gigabytes, the unit hfest reports in.
func GB(b float64) string {
	return fmt.Sprintf("%.2f GB", b/gib)
}

// MiB formats a device memory figure.
func MiB(mb float64) string {
	return fmt.Sprintf("%.0f MiB", mb)
}

var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n uint64) string {
	return printer.Sprintf("%d", n)
}

const rule = "----------------------------------------"

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func rightAligned(cols ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cfgs
}
