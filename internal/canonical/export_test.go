package canonical

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func exportFixture() *RuleSet {
	return &RuleSet{
		MarketplaceID: "meli",
		Name:          "Celulares",
		Version:       "2026-01-01",
		Rules: []Rule{
			{
				ID: "title_max_length", MarketplaceID: "meli", FieldName: "title",
				RuleType: RuleMaxLength, DataType: TypeString,
				Params:   map[string]interface{}{ParamMaxLength: 60},
				Severity: SeverityError, IsActive: true,
			},
			{
				ID: "brand_required", MarketplaceID: "meli", OriginalID: "BRAND",
				FieldName: "brand", RuleType: RuleRequired, DataType: TypeString,
				Severity: SeverityError, IsActive: true,
			},
		},
		Metadata: map[string]interface{}{"category_id": "MLB1055"},
	}
}

func TestExportJSON(t *testing.T) {
	data, err := exportFixture().ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	var decoded RuleSet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if decoded.MarketplaceID != "meli" || len(decoded.Rules) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Rules[0].RuleType != RuleMaxLength {
		t.Errorf("rule type = %s, want MAX_LENGTH", decoded.Rules[0].RuleType)
	}
}

func TestExportYAML(t *testing.T) {
	data, err := exportFixture().ExportYAML()
	if err != nil {
		t.Fatalf("ExportYAML() error = %v", err)
	}

	var decoded RuleSet
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid yaml: %v", err)
	}
	if decoded.Name != "Celulares" || len(decoded.Rules) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestExportCSV(t *testing.T) {
	data, err := exportFixture().ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus one per rule", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,marketplace_id") {
		t.Errorf("header = %q", lines[0])
	}
	// Params flatten into a JSON blob column, csv-quoted.
	if !strings.Contains(lines[1], `""max_length"":60`) {
		t.Errorf("params column missing from %q", lines[1])
	}
	if !strings.Contains(lines[2], "brand_required") {
		t.Errorf("second rule missing from %q", lines[2])
	}
}
