// Package canonical defines the marketplace-agnostic rule model.
//
// A CanonicalRule is the normalized form of one marketplace constraint;
// marketplace adapters translate their own vocabulary into these rules so the
// validation pipeline never sees marketplace-specific shapes.
package canonical

// RuleType identifies the kind of constraint a rule expresses.
type RuleType string

const (
	RuleRequired    RuleType = "REQUIRED"
	RuleMinLength   RuleType = "MIN_LENGTH"
	RuleMaxLength   RuleType = "MAX_LENGTH"
	RulePattern     RuleType = "PATTERN"
	RuleEnum        RuleType = "ENUM"
	RuleMinValue    RuleType = "MIN_VALUE"
	RuleMaxValue    RuleType = "MAX_VALUE"
	RuleCustom      RuleType = "CUSTOM"
	RuleDateFormat  RuleType = "DATE_FORMAT"
	RuleConditional RuleType = "CONDITIONAL"
)

// DataType tags the value shape a rule applies to.
type DataType string

const (
	TypeString   DataType = "STRING"
	TypeInteger  DataType = "INTEGER"
	TypeFloat    DataType = "FLOAT"
	TypeBoolean  DataType = "BOOLEAN"
	TypeDate     DataType = "DATE"
	TypeDateTime DataType = "DATETIME"
	TypeArray    DataType = "ARRAY"
	TypeObject   DataType = "OBJECT"
)

// Severity indicates rule importance.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Condition restricts a rule to records where field <op> value holds.
type Condition struct {
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"` // "eq", "ne", "present"
	Value    interface{} `yaml:"value,omitempty" json:"value,omitempty"`
}

// Rule is one normalized marketplace constraint.
type Rule struct {
	ID            string                 `yaml:"id" json:"id"`
	MarketplaceID string                 `yaml:"marketplace_id" json:"marketplace_id"`
	OriginalID    string                 `yaml:"original_id,omitempty" json:"original_id,omitempty"`
	FieldName     string                 `yaml:"field_name" json:"field_name"`
	RuleType      RuleType               `yaml:"rule_type" json:"rule_type"`
	DataType      DataType               `yaml:"data_type" json:"data_type"`
	Params        map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	Severity      Severity               `yaml:"severity" json:"severity"`
	Condition     *Condition             `yaml:"condition,omitempty" json:"condition,omitempty"`
	DependsOn     []string               `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	IsActive      bool                   `yaml:"is_active" json:"is_active"`
}

// RuleSet is an ordered collection of rules for one marketplace category.
// Rule IDs are unique within a set; multiple rules per field are expected.
type RuleSet struct {
	MarketplaceID string                 `yaml:"marketplace_id" json:"marketplace_id"`
	Name          string                 `yaml:"name" json:"name"`
	Version       string                 `yaml:"version" json:"version"`
	Rules         []Rule                 `yaml:"rules" json:"rules"`
	Metadata      map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// RulesForField returns the rules targeting a field, in set order.
func (s *RuleSet) RulesForField(field string) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.FieldName == field {
			out = append(out, r)
		}
	}
	return out
}

// ActiveRules returns the active rules in set order.
func (s *RuleSet) ActiveRules() []Rule {
	out := make([]Rule, 0, len(s.Rules))
	for _, r := range s.Rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

// FieldNames returns the distinct field names referenced by the set,
// in first-appearance order.
func (s *RuleSet) FieldNames() []string {
	seen := make(map[string]bool, len(s.Rules))
	var out []string
	for _, r := range s.Rules {
		if !seen[r.FieldName] {
			seen[r.FieldName] = true
			out = append(out, r.FieldName)
		}
	}
	return out
}
