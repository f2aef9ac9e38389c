package canonical

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExportJSON serializes the rule set as indented JSON.
func (s *RuleSet) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ExportYAML serializes the rule set as YAML.
func (s *RuleSet) ExportYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// ExportCSV flattens the rule set into one row per rule. Params are carried
// as a JSON blob in the last column.
func (s *RuleSet) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "marketplace_id", "original_id", "field_name", "rule_type", "data_type", "severity", "is_active", "params"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range s.Rules {
		params := ""
		if len(r.Params) > 0 {
			b, err := json.Marshal(r.Params)
			if err != nil {
				return nil, fmt.Errorf("marshal params of %s: %w", r.ID, err)
			}
			params = string(b)
		}
		row := []string{
			r.ID, r.MarketplaceID, r.OriginalID, r.FieldName,
			string(r.RuleType), string(r.DataType), string(r.Severity),
			fmt.Sprintf("%t", r.IsActive), params,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
