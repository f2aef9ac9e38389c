// Package report renders batch validation reports for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/drapala/validahub-new-sub001/internal/pipeline"
)

// Reporter defines the interface for rendering validation reports.
type Reporter interface {
	// Generate creates a report document from a batch result.
	Generate(result *pipeline.Report) (string, error)

	// Write writes the report to a writer.
	Write(result *pipeline.Report, w io.Writer) error

	// Format returns the format name.
	Format() string
}

// NewReporter creates a reporter for the given format.
func NewReporter(format string) (Reporter, error) {
	switch format {
	case "markdown", "md":
		return &MarkdownReporter{}, nil
	case "json":
		return &JSONReporter{Indent: true}, nil
	case "csv":
		return &CSVReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// AvailableFormats returns the list of supported formats.
func AvailableFormats() []string {
	return []string{"markdown", "json", "csv"}
}

// JSONReporter emits the report as JSON, the format for piping into other
// tools. Indent trades bytes for readability.
type JSONReporter struct {
	Indent bool
}

func (r *JSONReporter) Format() string { return "json" }

func (r *JSONReporter) Write(result *pipeline.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func (r *JSONReporter) Generate(result *pipeline.Report) (string, error) {
	var b strings.Builder
	if err := r.Write(result, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
