// Package tabular is the narrow tabular-data capability the pipeline
// consumes: CSV text in, records out, and back again. The dialect is plain
// encoding/csv; anything richer belongs to the ingestion layer, not here.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Table is an immutable-by-convention header + rows value. Mutating helpers
// return new tables so preview runs never touch the caller's data.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse reads CSV text into a table. The first row is the header.
func Parse(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("parse csv: no header row")
	}
	return &Table{Header: all[0], Rows: all[1:]}, nil
}

// FromRecords builds a table from records using the given column order.
func FromRecords(header []string, records []map[string]interface{}) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	for _, rec := range records {
		row := make([]string, len(header))
		for i, col := range header {
			if v, ok := rec[col]; ok && v != nil {
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Records converts rows into field-keyed records. Cells beyond the header
// width are dropped; short rows leave the trailing fields absent.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]interface{}, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// Text renders the table back to CSV text.
func (t *Table) Text() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return "", err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", err
	}
	w.Flush()
	return buf.String(), w.Error()
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount returns the header width.
func (t *Table) ColumnCount() int { return len(t.Header) }

// Column returns the values of one column, empty strings for short rows.
func (t *Table) Column(name string) ([]string, bool) {
	idx := -1
	for i, col := range t.Header {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// Select returns a new table keeping only the named columns, in the given
// order. Unknown names produce empty columns.
func (t *Table) Select(names []string) *Table {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = -1
		for j, col := range t.Header {
			if col == n {
				idx[i] = j
				break
			}
		}
	}
	out := &Table{Header: append([]string(nil), names...)}
	for _, row := range t.Rows {
		nr := make([]string, len(names))
		for i, j := range idx {
			if j >= 0 && j < len(row) {
				nr[i] = row[j]
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// Filter returns a new table keeping rows the predicate accepts.
func (t *Table) Filter(keep func(row map[string]interface{}) bool) *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	records := t.Records()
	for i, rec := range records {
		if keep(rec) {
			out.Rows = append(out.Rows, append([]string(nil), t.Rows[i]...))
		}
	}
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}
