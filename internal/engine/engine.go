package engine

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
)

// Engine evaluates one loaded rule document. The document is immutable and
// owned by the engine; a single engine is safe for concurrent use because
// evaluation only mutates the caller's record.
type Engine struct {
	doc *Document
}

// New creates an engine for a loaded document.
func New(doc *Document) *Engine {
	return &Engine{doc: doc}
}

// Rules exposes the document's rules in order.
func (e *Engine) Rules() []Rule {
	return e.doc.Rules
}

// Evaluate runs every rule against the record, in document order. When
// autoFix is set, a failing check with a defined fix mutates the record in
// place; later rules observe those mutations, which is what makes rule
// chaining (normalize, then check) work.
//
// A fault inside a single rule becomes an ERROR result for that rule only.
func (e *Engine) Evaluate(record Record, autoFix bool) []RuleResult {
	results := make([]RuleResult, 0, len(e.doc.Rules))
	for _, rule := range e.doc.Rules {
		results = append(results, e.evaluateRule(rule, record, autoFix))
	}
	return results
}

func (e *Engine) evaluateRule(rule Rule, record Record, autoFix bool) (res RuleResult) {
	defer func() {
		if r := recover(); r != nil {
			res = RuleResult{
				RuleID:  rule.ID,
				Status:  StatusError,
				Message: fmt.Sprintf("rule evaluation fault: %v", r),
				Meta:    ResultMeta{Field: rule.Check.Field, Severity: rule.Meta.Severity},
			}
		}
	}()

	if !rule.guard.pass(record) {
		return RuleResult{RuleID: rule.ID, Status: StatusSkip}
	}

	ok, msg := e.runCheck(rule.Check, record)
	if ok {
		return RuleResult{RuleID: rule.ID, Status: StatusPass}
	}

	if autoFix && rule.Fix != nil {
		if fixed := e.applyFix(rule, record); fixed != nil {
			return *fixed
		}
	}

	return RuleResult{
		RuleID:  rule.ID,
		Status:  StatusFail,
		Message: msg,
		Meta: ResultMeta{
			Field:    rule.Check.Field,
			Value:    record[rule.Check.Field],
			Severity: rule.Meta.Severity,
			Expected: rule.Meta.Expected,
		},
	}
}

func (e *Engine) runCheck(check Check, record Record) (bool, string) {
	switch check.Type {
	case "required":
		if canonical.IsEmpty(record[check.Field]) {
			return false, fmt.Sprintf("field %q is required", check.Field)
		}
		return true, ""

	case "numeric_min":
		min := check.Min
		if min == nil {
			min = check.Value
		}
		if min == nil {
			// Missing threshold is a configuration error; the check fails
			// rather than passing vacuously.
			return false, fmt.Sprintf("numeric_min on %q has no threshold configured", check.Field)
		}
		n, err := cast.ToFloat64E(record[check.Field])
		if err != nil {
			return false, fmt.Sprintf("field %q value %v is not numeric", check.Field, record[check.Field])
		}
		if n < *min {
			return false, fmt.Sprintf("field %q value %v is below %v", check.Field, n, *min)
		}
		return true, ""

	case "in_set":
		allowed := check.Set
		if check.Mapping != "" {
			table, ok := e.doc.MappingTable(check.Mapping)
			if !ok {
				return false, fmt.Sprintf("in_set on %q references unknown mapping %q", check.Field, check.Mapping)
			}
			allowed = allowed[:0:0]
			for k := range table {
				allowed = append(allowed, k)
			}
		}
		got := cast.ToString(record[check.Field])
		for _, a := range allowed {
			if cast.ToString(a) == got {
				return true, ""
			}
		}
		return false, fmt.Sprintf("field %q value %q is not in the allowed set", check.Field, got)

	default:
		return false, fmt.Sprintf("unknown check type %q", check.Type)
	}
}

// applyFix mutates the record and returns a FIXED result, or nil when the fix
// performed no mutation (map_value with no hit and no default). A fault while
// fixing degrades to nil so the caller reports the original FAIL.
func (e *Engine) applyFix(rule Rule, record Record) (res *RuleResult) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
		}
	}()

	fix := rule.Fix
	field := fix.Field
	if field == "" {
		field = rule.Check.Field
	}
	old := record[field]

	switch fix.Type {
	case "set_default":
		record[field] = fix.Value

	case "map_value":
		table, ok := e.doc.MappingTable(fix.Mapping)
		if !ok {
			return nil
		}
		mapped, hit := table[cast.ToString(old)]
		switch {
		case hit:
			record[field] = mapped
		case fix.Default != nil:
			record[field] = fix.Default
		default:
			return nil
		}

	default:
		return nil
	}

	return &RuleResult{
		RuleID:  rule.ID,
		Status:  StatusFixed,
		Message: fmt.Sprintf("field %q fixed by %s", field, fix.Type),
		Meta: ResultMeta{
			Field:    field,
			OldValue: old,
			NewValue: record[field],
			FixType:  fix.Type,
			Severity: rule.Meta.Severity,
		},
	}
}
