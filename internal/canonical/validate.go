package canonical

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Common param keys used by rule types.
const (
	ParamMinLength     = "min_length"
	ParamMaxLength     = "max_length"
	ParamPattern       = "pattern"
	ParamAllowedValues = "allowed_values"
	ParamMinValue      = "min_value"
	ParamMaxValue      = "max_value"
	ParamFormat        = "format"
	ParamValidator     = "validator"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// Validate evaluates one rule against one value. It never panics and never
// returns an error: every outcome, including coercion failures, is expressed
// as (false, message).
func Validate(reg *Registry, rule Rule, value interface{}) (bool, string) {
	// REQUIRED short-circuits everything, including the data-type gate.
	if rule.RuleType == RuleRequired {
		if IsEmpty(value) {
			return false, fmt.Sprintf("field %q is required", rule.FieldName)
		}
		return true, ""
	}

	if value == nil {
		// A lower bound cannot be satisfied by nothing; everything else is
		// an optional field with nothing to check.
		if rule.RuleType == RuleMinLength || rule.RuleType == RuleMinValue {
			return false, fmt.Sprintf("field %q is missing and cannot satisfy %s", rule.FieldName, rule.RuleType)
		}
		return true, ""
	}

	if rule.DataType != "" && !reg.Validate(rule.DataType, value) {
		return false, fmt.Sprintf("field %q has wrong type: expected %s", rule.FieldName, rule.DataType)
	}

	switch rule.RuleType {
	case RuleMinLength:
		return checkMinLength(rule, value)
	case RuleMaxLength:
		return checkMaxLength(rule, value)
	case RulePattern:
		return checkPattern(rule, value)
	case RuleEnum:
		return checkEnum(rule, value)
	case RuleMinValue:
		return checkMinValue(rule, value)
	case RuleMaxValue:
		return checkMaxValue(rule, value)
	case RuleDateFormat:
		return checkDateFormat(rule, value)
	case RuleCustom, RuleConditional:
		// Extension points: valid unless a validator tag is registered.
		if tag, ok := rule.Params[ParamValidator].(string); ok {
			if !reg.Validate(DataType(tag), value) {
				return false, fmt.Sprintf("field %q failed custom validation %q", rule.FieldName, tag)
			}
		}
		return true, ""
	default:
		return true, ""
	}
}

// IsEmpty reports whether a value counts as absent for REQUIRED checks:
// nil, empty string, empty array, or empty map.
func IsEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	case map[interface{}]interface{}:
		return len(v) == 0
	default:
		return false
	}
}

// Length checks count characters, not bytes; accented titles at exactly the
// limit must pass.
func checkMinLength(rule Rule, value interface{}) (bool, string) {
	min, err := cast.ToIntE(rule.Params[ParamMinLength])
	if err != nil {
		return false, fmt.Sprintf("rule %q has no usable min_length", rule.ID)
	}
	n := utf8.RuneCountInString(cast.ToString(value))
	if n < min {
		return false, fmt.Sprintf("field %q is too short: %d < %d", rule.FieldName, n, min)
	}
	return true, ""
}

func checkMaxLength(rule Rule, value interface{}) (bool, string) {
	max, err := cast.ToIntE(rule.Params[ParamMaxLength])
	if err != nil {
		return false, fmt.Sprintf("rule %q has no usable max_length", rule.ID)
	}
	n := utf8.RuneCountInString(cast.ToString(value))
	if n > max {
		return false, fmt.Sprintf("field %q is too long: %d > %d", rule.FieldName, n, max)
	}
	return true, ""
}

// checkPattern requires a full-string match, not a substring hit.
func checkPattern(rule Rule, value interface{}) (bool, string) {
	pattern, ok := rule.Params[ParamPattern].(string)
	if !ok || pattern == "" {
		return false, fmt.Sprintf("rule %q has no pattern", rule.ID)
	}
	re, err := regexp.Compile(`\A(?:` + strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$") + `)\z`)
	if err != nil {
		return false, fmt.Sprintf("rule %q pattern does not compile: %v", rule.ID, err)
	}
	s := cast.ToString(value)
	if !re.MatchString(s) {
		return false, fmt.Sprintf("field %q value %q does not match pattern %s", rule.FieldName, s, pattern)
	}
	return true, ""
}

// checkEnum supports plain scalars and {id, name} objects; object membership
// is decided on the id only.
func checkEnum(rule Rule, value interface{}) (bool, string) {
	allowed, err := cast.ToSliceE(rule.Params[ParamAllowedValues])
	if err != nil {
		return false, fmt.Sprintf("rule %q has no allowed_values", rule.ID)
	}
	got := cast.ToString(value)
	for _, a := range allowed {
		if enumID(a) == got {
			return true, ""
		}
	}
	return false, fmt.Sprintf("field %q value %q is not an allowed value", rule.FieldName, got)
}

func enumID(v interface{}) string {
	switch m := v.(type) {
	case map[string]interface{}:
		return cast.ToString(m["id"])
	case map[interface{}]interface{}:
		return cast.ToString(m["id"])
	default:
		return cast.ToString(v)
	}
}

func checkMinValue(rule Rule, value interface{}) (bool, string) {
	min, err := cast.ToFloat64E(rule.Params[ParamMinValue])
	if err != nil {
		return false, fmt.Sprintf("rule %q has no usable min_value", rule.ID)
	}
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return false, fmt.Sprintf("field %q value %v is not numeric", rule.FieldName, value)
	}
	if n < min {
		return false, fmt.Sprintf("field %q value %v is below the minimum %v", rule.FieldName, value, min)
	}
	return true, ""
}

func checkMaxValue(rule Rule, value interface{}) (bool, string) {
	max, err := cast.ToFloat64E(rule.Params[ParamMaxValue])
	if err != nil {
		return false, fmt.Sprintf("rule %q has no usable max_value", rule.ID)
	}
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return false, fmt.Sprintf("field %q value %v is not numeric", rule.FieldName, value)
	}
	if n > max {
		return false, fmt.Sprintf("field %q value %v is above the maximum %v", rule.FieldName, value, max)
	}
	return true, ""
}

func checkDateFormat(rule Rule, value interface{}) (bool, string) {
	if _, ok := value.(time.Time); ok {
		return true, ""
	}
	s := cast.ToString(value)
	layouts := dateLayouts
	if f, ok := rule.Params[ParamFormat].(string); ok && f != "" {
		layouts = []string{f}
	}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, ""
		}
	}
	return false, fmt.Sprintf("field %q value %q is not a valid date", rule.FieldName, s)
}
