package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	strs "arenacli/pkg/strings"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable prints a plain, column aligned table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON prints the raw value as indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML prints the JSON form of the value as YAML.
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// Printer writes command results in the selected format.
type Printer struct {
	out       io.Writer
	format    OutputFormat
	noHeaders bool
}

// NewPrinter creates a Printer. An empty format means table.
func NewPrinter(out io.Writer, format OutputFormat, noHeaders bool) *Printer {
	if format == "" {
		format = OutputFormatTable
	}
	return &Printer{out: out, format: format, noHeaders: noHeaders}
}

// Print writes data as JSON or YAML, or the given headers and rows as a
// table.
func (p *Printer) Print(data any, headers []string, rows [][]string) error {
	switch p.format {
	case OutputFormatJSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output as JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	case OutputFormatYAML:
		// go through JSON so field names match the API's
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		y, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to encode output as YAML: %w", err)
		}
		_, err = p.out.Write(y)
		return err
	default:
		p.table(headers, rows)
		return nil
	}
}

// table renders rows with plainStyle. Nothing is printed for an empty,
// headerless table.
func (p *Printer) table(headers []string, rows [][]string) {
	if len(headers) == 0 || (len(rows) == 0 && p.noHeaders) {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(plainStyle())
	if !p.noHeaders {
		t.AppendHeader(toRow(headers))
	}
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}
	t.Render()
}

// plainStyle renders kubectl-like tables: no borders, upper case headers and
// three spaces between columns, easy to pipe into grep or awk.
func plainStyle() table.Style {
	s := table.StyleDefault
	s.Name = "ArenaPlain"
	s.Box.PaddingLeft = ""
	s.Box.PaddingRight = "   "
	s.Format.Header = text.FormatUpper
	s.Options.DrawBorder = false
	s.Options.SeparateColumns = false
	s.Options.SeparateHeader = false
	s.Options.SeparateRows = false
	s.Options.SeparateFooter = false
	return s
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// FormatError formats an error message for CLI output.
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output.
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output.
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}

// StatusColor picks the color used for a session state or similar label.
func StatusColor(healthy bool) text.Colors {
	if healthy {
		return text.Colors{text.FgGreen}
	}
	return text.Colors{text.FgYellow}
}

// Truncate fits user content into a table cell: whitespace is collapsed to
// single spaces and the result cut to n runes.
func Truncate(s string, n int) string {
	return strs.Truncate(strs.OneLine(s), n)
}
