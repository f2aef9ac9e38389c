package engine

import (
	"reflect"
	"testing"
)

func mustLoad(t *testing.T, doc string) *Engine {
	t.Helper()
	d, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return New(d)
}

func TestRequiredFixScenario(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: sku_required
    check: {type: required, field: sku}
    fix: {type: set_default, field: sku, value: SKU-PENDING}
`)
	record := Record{"price": 10}

	results := e.Evaluate(record, true)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Status != StatusFixed {
		t.Errorf("status = %s, want FIXED", results[0].Status)
	}
	if record["sku"] != "SKU-PENDING" {
		t.Errorf("record sku = %v, want SKU-PENDING", record["sku"])
	}
	if record["price"] != 10 {
		t.Errorf("record price = %v, want 10 untouched", record["price"])
	}
	if results[0].Meta.NewValue != "SKU-PENDING" || results[0].Meta.FixType != "set_default" {
		t.Errorf("fix metadata = %+v", results[0].Meta)
	}
}

func TestFailWithoutFix(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: sku_required
    check: {type: required, field: sku}
    meta: {severity: error, expected: non-empty SKU}
`)
	results := e.Evaluate(Record{}, true)

	r := results[0]
	if r.Status != StatusFail {
		t.Fatalf("status = %s, want FAIL", r.Status)
	}
	if r.Meta.Field != "sku" || r.Meta.Severity != "error" || r.Meta.Expected != "non-empty SKU" {
		t.Errorf("fail metadata = %+v", r.Meta)
	}
}

func TestNumericMin(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: price_min
    check: {type: numeric_min, field: price, min: 0.01}
`)
	if got := e.Evaluate(Record{"price": 10}, false)[0].Status; got != StatusPass {
		t.Errorf("price 10: status = %s, want PASS", got)
	}
	if got := e.Evaluate(Record{"price": -1}, false)[0].Status; got != StatusFail {
		t.Errorf("price -1: status = %s, want FAIL", got)
	}
	if got := e.Evaluate(Record{"price": "abc"}, false)[0].Status; got != StatusFail {
		t.Errorf("price abc: status = %s, want FAIL", got)
	}
}

func TestNumericMinMissingThresholdFails(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: price_min
    check: {type: numeric_min, field: price}
`)
	r := e.Evaluate(Record{"price": 10}, false)[0]
	if r.Status != StatusFail {
		t.Errorf("status = %s, want FAIL on misconfigured check", r.Status)
	}
}

func TestInSetInlineAndMapping(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: cond
    check: {type: in_set, field: condition, set: [new, used]}
  - id: brand
    check: {type: in_set, field: brand, mapping: brands}
mappings:
  brands:
    Samsung: Samsung
    samsung: Samsung
`)
	results := e.Evaluate(Record{"condition": "new", "brand": "Samsung"}, false)
	for _, r := range results {
		if r.Status != StatusPass {
			t.Errorf("rule %s status = %s, want PASS", r.RuleID, r.Status)
		}
	}

	results = e.Evaluate(Record{"condition": "refurb", "brand": "Sony"}, false)
	for _, r := range results {
		if r.Status != StatusFail {
			t.Errorf("rule %s status = %s, want FAIL", r.RuleID, r.Status)
		}
	}
}

func TestMapValueFix(t *testing.T) {
	doc := `
rules:
  - id: brand_norm
    check: {type: in_set, field: brand, set: [Samsung, Sony]}
    fix: {type: map_value, field: brand, mapping: brands, default: Generic}
mappings:
  brands:
    samsung: Samsung
`
	e := mustLoad(t, doc)

	record := Record{"brand": "samsung"}
	r := e.Evaluate(record, true)[0]
	if r.Status != StatusFixed || record["brand"] != "Samsung" {
		t.Errorf("mapping hit: status = %s, brand = %v", r.Status, record["brand"])
	}

	// Idempotence: the corrected record now passes the check, so a second
	// pass must not mutate or error.
	again := e.Evaluate(record, true)[0]
	if again.Status != StatusPass || record["brand"] != "Samsung" {
		t.Errorf("second pass: status = %s, brand = %v", again.Status, record["brand"])
	}

	// Miss falls back to the configured default.
	record = Record{"brand": "lg"}
	r = e.Evaluate(record, true)[0]
	if r.Status != StatusFixed || record["brand"] != "Generic" {
		t.Errorf("default fallback: status = %s, brand = %v", r.Status, record["brand"])
	}
}

func TestMapValueNoHitNoDefaultDoesNotMutate(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: brand_norm
    check: {type: in_set, field: brand, set: [Samsung]}
    fix: {type: map_value, field: brand, mapping: brands}
mappings:
  brands:
    samsung: Samsung
`)
	record := Record{"brand": "lg"}
	r := e.Evaluate(record, true)[0]
	if r.Status != StatusFail {
		t.Errorf("status = %s, want FAIL when no hit and no default", r.Status)
	}
	if record["brand"] != "lg" {
		t.Errorf("brand = %v, want untouched", record["brand"])
	}
}

func TestGuardForms(t *testing.T) {
	doc := `
rules:
  - id: bare
    when: premium
    check: {type: required, field: warranty}
  - id: eq
    when: condition == "used"
    check: {type: required, field: usage_notes}
  - id: ne
    when: condition != "new"
    check: {type: required, field: usage_notes}
  - id: malformed
    when: condition >= broken
    check: {type: required, field: title}
`
	e := mustLoad(t, doc)

	results := e.Evaluate(Record{"condition": "new", "title": "t"}, false)
	byID := map[string]Status{}
	for _, r := range results {
		byID[r.RuleID] = r.Status
	}

	want := map[string]Status{
		"bare":      StatusSkip, // premium absent -> falsy
		"eq":        StatusSkip,
		"ne":        StatusSkip,
		"malformed": StatusPass, // fail-open guard, then title present
	}
	if !reflect.DeepEqual(byID, want) {
		t.Errorf("statuses = %v, want %v", byID, want)
	}

	results = e.Evaluate(Record{"condition": "used", "premium": true}, false)
	for _, r := range results {
		if r.RuleID == "bare" && r.Status != StatusFail {
			t.Errorf("bare with truthy premium: status = %s, want FAIL", r.Status)
		}
		if r.RuleID == "eq" && r.Status != StatusFail {
			t.Errorf("eq with used: status = %s, want FAIL", r.Status)
		}
	}
}

func TestRuleChainingSeesEarlierFixes(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: brand_norm
    check: {type: in_set, field: brand, mapping: brands}
    fix: {type: map_value, field: brand, mapping: normalize}
  - id: brand_enum
    check: {type: in_set, field: brand, set: [Samsung, Sony]}
mappings:
  brands:
    Samsung: x
    Sony: x
  normalize:
    samsung: Samsung
`)
	record := Record{"brand": "samsung"}
	results := e.Evaluate(record, true)

	if results[0].Status != StatusFixed {
		t.Fatalf("first rule status = %s, want FIXED", results[0].Status)
	}
	if results[1].Status != StatusPass {
		t.Errorf("second rule status = %s, want PASS on normalized brand", results[1].Status)
	}
}

func TestUnknownCheckTypeFailsOnlyThatRule(t *testing.T) {
	e := mustLoad(t, `
rules:
  - id: weird
    check: {type: quantum, field: x}
  - id: ok
    check: {type: required, field: title}
`)
	results := e.Evaluate(Record{"title": "t"}, false)
	if results[0].Status != StatusFail {
		t.Errorf("unknown check: status = %s, want FAIL", results[0].Status)
	}
	if results[1].Status != StatusPass {
		t.Errorf("sibling rule: status = %s, want PASS", results[1].Status)
	}
}

func TestLoadRejectsMissingIDAndCheck(t *testing.T) {
	if _, err := Load([]byte("rules:\n  - check: {type: required, field: x}\n")); err == nil {
		t.Error("rule without id should not load")
	}
	if _, err := Load([]byte("rules:\n  - id: r1\n")); err == nil {
		t.Error("rule without check should not load")
	}
}
