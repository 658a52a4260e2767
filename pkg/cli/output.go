package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output for results implementing CSVRecorder.
	FormatCSV OutputFormat = "csv"
)

// Formatter renders command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// CSVRecorder is implemented by result types that can render as CSV.
type CSVRecorder interface {
	// CSVHeader returns the column names.
	CSVHeader() []string
	// CSVRows returns one record per row, columns matching CSVHeader.
	CSVRows() [][]string
}

// TextFormatter renders output with the value's own string form. Result
// types carrying a String method control their text rendering that way.
type TextFormatter struct{}

// Format converts data to text.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

// FormatTo writes data to w as text.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter renders output as CSV. The data must implement
// CSVRecorder.
type CSVFormatter struct{}

// Format converts data to CSV.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTo writes data to w as CSV.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	recorder, ok := data.(CSVRecorder)
	if !ok {
		return fmt.Errorf("%T does not support CSV output", data)
	}

	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(recorder.CSVHeader()); err != nil {
		return err
	}
	for _, row := range recorder.CSVRows() {
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// NewFormatter creates a formatter for the given format, defaulting to
// text for unknown values.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
