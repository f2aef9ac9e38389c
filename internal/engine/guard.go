package engine

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
)

// guard is a parsed `when` expression. Three forms are supported:
//
//	field                  truthy / non-empty check
//	field == "literal"     equality against a string literal
//	field != "literal"     inequality against a string literal
//
// Anything else parses as malformed, and malformed guards pass. That
// fail-open behavior is part of the contract; the loader warns when it
// happens so a typo does not silently widen a rule.
type guard struct {
	field     string
	op        string // "", "==", "!="
	literal   string
	malformed bool
}

func parseGuard(expr string) guard {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return guard{}
	}

	for _, op := range []string{"==", "!="} {
		if idx := strings.Index(expr, op); idx >= 0 {
			field := strings.TrimSpace(expr[:idx])
			lit := strings.TrimSpace(expr[idx+len(op):])
			if field == "" || !isQuoted(lit) {
				return guard{malformed: true}
			}
			return guard{field: field, op: op, literal: lit[1 : len(lit)-1]}
		}
	}

	if strings.ContainsAny(expr, " <>=!&|") {
		return guard{malformed: true}
	}
	return guard{field: expr}
}

func isQuoted(s string) bool {
	return len(s) >= 2 &&
		((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\''))
}

// pass reports whether the rule should run for this record.
func (g guard) pass(record Record) bool {
	if g.malformed {
		return true
	}
	switch g.op {
	case "==":
		return cast.ToString(record[g.field]) == g.literal
	case "!=":
		return cast.ToString(record[g.field]) != g.literal
	default:
		if g.field == "" {
			return true
		}
		return truthy(record[g.field])
	}
}

func truthy(v interface{}) bool {
	if canonical.IsEmpty(v) {
		return false
	}
	switch n := v.(type) {
	case bool:
		return n
	case int:
		return n != 0
	case float64:
		return n != 0
	default:
		return true
	}
}
