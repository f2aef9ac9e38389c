package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
	"github.com/drapala/validahub-new-sub001/internal/engine"
	"github.com/drapala/validahub-new-sub001/internal/pipeline"
)

// MarkdownReporter generates Markdown reports.
type MarkdownReporter struct{}

func (r *MarkdownReporter) Format() string { return "markdown" }

func (r *MarkdownReporter) Generate(result *pipeline.Report) (string, error) {
	var sb strings.Builder
	_ = r.Write(result, &sb)
	return sb.String(), nil
}

func (r *MarkdownReporter) Write(result *pipeline.Report, w io.Writer) error {
	// Header
	fmt.Fprintf(w, "# Validation Report\n\n")

	// Summary
	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "- **Batch:** %s\n", result.ID)
	fmt.Fprintf(w, "- **Marketplace:** %s / %s\n", result.Marketplace, result.Category)
	fmt.Fprintf(w, "- **Rows:** %d\n", result.Summary.Rows)
	fmt.Fprintf(w, "- **Errors:** %d\n", result.Summary.TotalErrors)
	fmt.Fprintf(w, "- **Corrections:** %d (%d rows touched, %.0f%% of errors fixed)\n",
		result.Summary.TotalCorrections, result.Summary.RowsTouched, result.Summary.SuccessRate*100)
	fmt.Fprintf(w, "- **Duration:** %s\n", result.Duration)
	fmt.Fprintf(w, "\n")

	if result.Summary.TotalErrors == 0 {
		fmt.Fprintf(w, "No violations found.\n\n")
		return nil
	}

	// Violations by row
	fmt.Fprintf(w, "## Violations\n\n")

	for _, row := range result.Rows {
		if len(row.Errors) == 0 && !rowHasEngineFailure(row) && len(row.Corrections) == 0 {
			continue
		}

		fmt.Fprintf(w, "### Row %d\n\n", row.Row+1)

		for _, e := range row.Errors {
			r.writeError(w, e)
		}
		for _, res := range row.Results {
			if res.Status == engine.StatusFail || res.Status == engine.StatusError {
				fmt.Fprintf(w, "- %s **%s** `%s`: %s\n", severityIcon(res.Meta.Severity), res.Status, res.RuleID, res.Message)
			}
		}
		if len(row.Corrections) > 0 {
			fmt.Fprintf(w, "\nCorrections:\n\n")
			for _, c := range row.Corrections {
				fmt.Fprintf(w, "- `%s`: `%v` -> `%v` (%s)\n", c.Field, c.OldValue, c.NewValue, c.Reason)
			}
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func (r *MarkdownReporter) writeError(w io.Writer, e canonical.ValidationError) {
	fmt.Fprintf(w, "- %s `%s` [%s]: %s\n", severityIcon(string(e.Severity)), e.Field, e.Code, e.Message)
	if e.Expected != nil {
		fmt.Fprintf(w, "  - expected: `%v`\n", e.Expected)
	}
}

func rowHasEngineFailure(row pipeline.RowReport) bool {
	for _, res := range row.Results {
		if res.Status == engine.StatusFail || res.Status == engine.StatusError {
			return true
		}
	}
	return false
}

func severityIcon(severity string) string {
	switch severity {
	case "error", "critical":
		return "🔴"
	case "warning":
		return "🟡"
	default:
		return "🔵"
	}
}
