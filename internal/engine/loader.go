package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drapala/validahub-new-sub001/internal/logger"
)

// Load parses a rule document from YAML bytes. Guards are parsed up front so
// evaluation never re-parses expressions; a malformed guard is logged loudly
// here and then behaves fail-open at evaluation time.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule document: %w", err)
	}

	for i := range doc.Rules {
		r := &doc.Rules[i]
		if r.ID == "" {
			return nil, fmt.Errorf("rule at index %d has no id", i)
		}
		if r.Check.Type == "" {
			return nil, fmt.Errorf("rule %q has no check type", r.ID)
		}
		r.guard = parseGuard(r.When)
		if r.guard.malformed {
			logger.Warn("rule %s: unparsable when expression %q, guard will pass for every record", r.ID, r.When)
		}
	}
	return &doc, nil
}

// LoadFile parses a rule document from a YAML file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule document: %w", err)
	}
	return Load(data)
}

// MappingTable returns a named lookup table from the document.
func (d *Document) MappingTable(name string) (map[string]interface{}, bool) {
	m, ok := d.Mappings[name]
	return m, ok
}
