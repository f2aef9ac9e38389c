// Package engine interprets declarative rule documents: ordered checks with
// optional guards and auto-fixes, evaluated against one record at a time.
package engine

// Record is a single row under validation. Fixes mutate it in place.
type Record = map[string]interface{}

// Status is the outcome of evaluating one rule against one record.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusFixed Status = "FIXED"
	StatusError Status = "ERROR"
	StatusSkip  Status = "SKIP"
)

// Check is the declarative condition of a rule.
type Check struct {
	Type  string        `yaml:"type" json:"type"` // "required", "numeric_min", "in_set"
	Field string        `yaml:"field" json:"field"`
	Min   *float64      `yaml:"min,omitempty" json:"min,omitempty"`
	Value *float64      `yaml:"value,omitempty" json:"value,omitempty"` // alias of min, kept for older documents
	Set   []interface{} `yaml:"set,omitempty" json:"set,omitempty"`
	// Mapping names a table in the document's mappings section whose keys
	// form the allowed set (in_set) or whose entries drive a map_value fix.
	Mapping string `yaml:"mapping,omitempty" json:"mapping,omitempty"`
}

// Fix is the optional corrective action applied when a check fails.
type Fix struct {
	Type    string      `yaml:"type" json:"type"` // "set_default", "map_value"
	Field   string      `yaml:"field" json:"field"`
	Value   interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	Mapping string      `yaml:"mapping,omitempty" json:"mapping,omitempty"`
	Default interface{} `yaml:"default,omitempty" json:"default,omitempty"`
}

// Meta carries reporting attributes that do not affect evaluation.
type Meta struct {
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`
	Expected string `yaml:"expected,omitempty" json:"expected,omitempty"`
}

// Rule is one entry of a rule document. Immutable once loaded.
type Rule struct {
	ID    string `yaml:"id" json:"id"`
	When  string `yaml:"when,omitempty" json:"when,omitempty"`
	Check Check  `yaml:"check" json:"check"`
	Fix   *Fix   `yaml:"fix,omitempty" json:"fix,omitempty"`
	Meta  Meta   `yaml:"meta,omitempty" json:"meta,omitempty"`

	guard guard
}

// Document is a parsed rule document: ordered rules plus named lookup tables
// usable by fixes and in_set checks.
type Document struct {
	Rules    []Rule                            `yaml:"rules" json:"rules"`
	Mappings map[string]map[string]interface{} `yaml:"mappings,omitempty" json:"mappings,omitempty"`
}

// ResultMeta is the per-result metadata block.
type ResultMeta struct {
	Field    string      `json:"field,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	OldValue interface{} `json:"old_value,omitempty"`
	NewValue interface{} `json:"new_value,omitempty"`
	FixType  string      `json:"fix_type,omitempty"`
	Severity string      `json:"severity,omitempty"`
	Expected string      `json:"expected,omitempty"`
}

// RuleResult is produced fresh per rule per record, never shared across rows.
type RuleResult struct {
	RuleID  string     `json:"rule_id"`
	Status  Status     `json:"status"`
	Message string     `json:"message,omitempty"`
	Meta    ResultMeta `json:"metadata,omitempty"`
}
