package tabular

import (
	"strings"
	"testing"
)

const sample = "sku,title,price\nA1,Phone,10\nA2,,5\n"

func TestParseAndRecords(t *testing.T) {
	tbl, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tbl.RowCount() != 2 || tbl.ColumnCount() != 3 {
		t.Fatalf("rows=%d cols=%d, want 2 and 3", tbl.RowCount(), tbl.ColumnCount())
	}

	recs := tbl.Records()
	if recs[0]["title"] != "Phone" {
		t.Errorf("record title = %v, want Phone", recs[0]["title"])
	}
	if _, ok := recs[1]["title"]; ok {
		t.Error("empty cell should be absent from the record")
	}
}

func TestRoundTrip(t *testing.T) {
	tbl, _ := Parse(sample)
	text, err := tbl.Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.HasPrefix(text, "sku,title,price\n") {
		t.Errorf("text = %q, want header first", text)
	}

	again, err := Parse(text)
	if err != nil {
		t.Fatalf("reparse error = %v", err)
	}
	if again.RowCount() != tbl.RowCount() {
		t.Errorf("row count changed across round trip")
	}
}

func TestColumnSelectFilter(t *testing.T) {
	tbl, _ := Parse(sample)

	col, ok := tbl.Column("sku")
	if !ok || len(col) != 2 || col[1] != "A2" {
		t.Errorf("Column(sku) = %v, %t", col, ok)
	}
	if _, ok := tbl.Column("missing"); ok {
		t.Error("unknown column should report false")
	}

	sel := tbl.Select([]string{"price", "sku"})
	if sel.Header[0] != "price" || sel.Rows[0][1] != "A1" {
		t.Errorf("Select reordered wrong: %v %v", sel.Header, sel.Rows[0])
	}

	flt := tbl.Filter(func(rec map[string]interface{}) bool { return rec["price"] == "10" })
	if flt.RowCount() != 1 {
		t.Errorf("Filter kept %d rows, want 1", flt.RowCount())
	}
	if tbl.RowCount() != 2 {
		t.Error("Filter must not mutate the source table")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl, _ := Parse(sample)
	cp := tbl.Clone()
	cp.Rows[0][0] = "changed"
	if tbl.Rows[0][0] == "changed" {
		t.Error("Clone should deep-copy rows")
	}
}
