package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/drapala/validahub-new-sub001/internal/engine"
	"github.com/drapala/validahub-new-sub001/internal/pipeline"
)

// CSVReporter flattens the report into one line per violation or correction,
// for spreadsheet triage of large batches.
type CSVReporter struct{}

func (r *CSVReporter) Format() string { return "csv" }

func (r *CSVReporter) Generate(result *pipeline.Report) (string, error) {
	var sb strings.Builder
	if err := r.Write(result, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *CSVReporter) Write(result *pipeline.Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"row", "kind", "field", "code", "severity", "message", "old_value", "new_value"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range result.Rows {
		rowNum := fmt.Sprintf("%d", row.Row+1)
		for _, e := range row.Errors {
			rec := []string{rowNum, "error", e.Field, e.Code, string(e.Severity), e.Message, str(e.Value), ""}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		for _, res := range row.Results {
			if res.Status != engine.StatusFail && res.Status != engine.StatusError {
				continue
			}
			rec := []string{rowNum, strings.ToLower(string(res.Status)), res.Meta.Field, res.RuleID, res.Meta.Severity, res.Message, str(res.Meta.Value), ""}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		for _, c := range row.Corrections {
			rec := []string{rowNum, "correction", c.Field, c.Reason, "", "", str(c.OldValue), str(c.NewValue)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
