package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter writes command results as aligned text or as JSON.
type Formatter struct {
	Writer   io.Writer
	JSONMode bool
}

// New creates a new Formatter with the specified writer and JSON mode.
func New(w io.Writer, jsonMode bool) *Formatter {
	return &Formatter{
		Writer:   w,
		JSONMode: jsonMode,
	}
}

// Table renders data. In JSON mode data itself is encoded, so scripts get the
// API's field names and numeric types; otherwise headers and rows are printed
// as an aligned table. When rows is empty, empty is printed instead of a
// header-only table.
func (f *Formatter) Table(data any, headers []string, rows [][]string, empty string) error {
	if f.JSONMode {
		return f.JSON(data)
	}
	if len(rows) == 0 && empty != "" {
		_, err := fmt.Fprintln(f.Writer, empty)
		return err
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	separators := make([]string, len(headers))
	for i, h := range headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(separators, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Field is one labelled value of a detail view.
type Field struct {
	Label string
	Value string
}

// Details renders data as a two-column label/value list, or encodes data in
// JSON mode.
func (f *Formatter) Details(data any, fields []Field) error {
	if f.JSONMode {
		return f.JSON(data)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	for _, field := range fields {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", field.Label, field.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Message prints a confirmation line. In JSON mode data is encoded instead.
func (f *Formatter) Message(data any, format string, args ...any) error {
	if f.JSONMode {
		return f.JSON(data)
	}
	_, err := fmt.Fprintf(f.Writer, format+"\n", args...)
	return err
}

// Section prints a blank-line separated heading in text mode.
func (f *Formatter) Section(title string) error {
	if f.JSONMode {
		return nil
	}
	_, err := fmt.Fprintf(f.Writer, "\n%s\n", title)
	return err
}

// JSON writes data as indented JSON.
func (f *Formatter) JSON(data any) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
