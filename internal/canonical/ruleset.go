package canonical

import "github.com/spf13/cast"

// ValidationError is one per-field failure produced while validating a record.
type ValidationError struct {
	Field    string      `json:"field"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
	Value    interface{} `json:"value,omitempty"`
	Expected interface{} `json:"expected,omitempty"`
}

// ValidateRecord runs every active rule against a record and groups messages
// by field name, preserving rule order within a field.
//
// Fields whose REQUIRED rule fails get only that failure: the other rules on
// the same field are suppressed so an empty field does not also report type
// and constraint noise.
func (s *RuleSet) ValidateRecord(reg *Registry, record map[string]interface{}) map[string][]string {
	missingRequired := make(map[string]bool)
	for _, r := range s.Rules {
		if !r.IsActive || r.RuleType != RuleRequired {
			continue
		}
		if IsEmpty(record[r.FieldName]) {
			missingRequired[r.FieldName] = true
		}
	}

	out := make(map[string][]string)
	for _, r := range s.Rules {
		if !r.IsActive {
			continue
		}
		if missingRequired[r.FieldName] && r.RuleType != RuleRequired {
			continue
		}
		if r.Condition != nil && !r.Condition.Matches(record) {
			continue
		}
		if ok, msg := Validate(reg, r, record[r.FieldName]); !ok {
			out[r.FieldName] = append(out[r.FieldName], msg)
		}
	}
	return out
}

// ValidateRecordErrors is ValidateRecord with structured per-field errors
// instead of bare messages.
func (s *RuleSet) ValidateRecordErrors(reg *Registry, record map[string]interface{}) []ValidationError {
	missingRequired := make(map[string]bool)
	for _, r := range s.Rules {
		if !r.IsActive || r.RuleType != RuleRequired {
			continue
		}
		if IsEmpty(record[r.FieldName]) {
			missingRequired[r.FieldName] = true
		}
	}

	var out []ValidationError
	for _, r := range s.Rules {
		if !r.IsActive {
			continue
		}
		if missingRequired[r.FieldName] && r.RuleType != RuleRequired {
			continue
		}
		if r.Condition != nil && !r.Condition.Matches(record) {
			continue
		}
		if ok, msg := Validate(reg, r, record[r.FieldName]); !ok {
			out = append(out, ValidationError{
				Field:    r.FieldName,
				Code:     string(r.RuleType),
				Message:  msg,
				Severity: r.Severity,
				Value:    record[r.FieldName],
				Expected: expectedOf(r),
			})
		}
	}
	return out
}

// Matches evaluates the condition against a record. Unknown operators match,
// so a mistyped operator widens a rule instead of silently disabling it.
func (c *Condition) Matches(record map[string]interface{}) bool {
	got := record[c.Field]
	switch c.Operator {
	case "eq":
		return cast.ToString(got) == cast.ToString(c.Value)
	case "ne":
		return cast.ToString(got) != cast.ToString(c.Value)
	case "present":
		return !IsEmpty(got)
	default:
		return true
	}
}

func expectedOf(r Rule) interface{} {
	switch r.RuleType {
	case RuleMinLength:
		return r.Params[ParamMinLength]
	case RuleMaxLength:
		return r.Params[ParamMaxLength]
	case RulePattern:
		return r.Params[ParamPattern]
	case RuleEnum:
		return r.Params[ParamAllowedValues]
	case RuleMinValue:
		return r.Params[ParamMinValue]
	case RuleMaxValue:
		return r.Params[ParamMaxValue]
	case RuleDateFormat:
		return r.Params[ParamFormat]
	default:
		return nil
	}
}
