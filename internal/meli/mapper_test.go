package meli

import (
	"testing"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
)

func testCategory() *Category {
	c := &Category{ID: "MLB1055", Name: "Celulares"}
	c.Settings.MaxTitleLength = 60
	c.Settings.ItemConditions = []string{"new", "used"}
	return c
}

func rulesByID(set *canonical.RuleSet) map[string]canonical.Rule {
	m := make(map[string]canonical.Rule, len(set.Rules))
	for _, r := range set.Rules {
		m[r.ID] = r
	}
	return m
}

func TestMapAttributesRequiredAttribute(t *testing.T) {
	attrs := []Attribute{
		{
			ID:        "BRAND",
			Name:      "Marca",
			ValueType: "string",
			Tags:      map[string]bool{"required": true},
			Values: []AttributeValue{
				{ID: "B1", Name: "Samsung"},
				{ID: "B2", Name: "Motorola"},
			},
			MaxLength: 255,
		},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	byID := rulesByID(set)

	req, ok := byID["BRAND_required"]
	if !ok {
		t.Fatal("required attribute should produce a REQUIRED rule")
	}
	if req.RuleType != canonical.RuleRequired || req.Severity != canonical.SeverityError {
		t.Errorf("required rule = %+v", req)
	}

	enum, ok := byID["BRAND_enum"]
	if !ok {
		t.Fatal("attribute with values should produce an ENUM rule")
	}
	allowed, _ := enum.Params[canonical.ParamAllowedValues].([]interface{})
	if len(allowed) != 2 {
		t.Errorf("allowed values = %v, want 2 entries", allowed)
	}

	if _, ok := byID["BRAND_max_length"]; !ok {
		t.Error("value_max_length should produce a MAX_LENGTH rule")
	}
}

func TestMapAttributesOptionalAttributeHasNoRequiredRule(t *testing.T) {
	attrs := []Attribute{
		{ID: "COLOR", ValueType: "string", Tags: map[string]bool{}},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	if _, ok := rulesByID(set)["COLOR_required"]; ok {
		t.Error("optional attribute must not produce a REQUIRED rule")
	}
}

func TestMapAttributesCatalogRequiredCountsAsRequired(t *testing.T) {
	attrs := []Attribute{
		{ID: "GTIN", ValueType: "string", Tags: map[string]bool{"catalog_required": true}},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	if _, ok := rulesByID(set)["GTIN_required"]; !ok {
		t.Error("catalog_required should count as required")
	}
}

func TestMapAttributesSkipsReadOnly(t *testing.T) {
	attrs := []Attribute{
		{ID: "ITEM_ID", ValueType: "string", Tags: map[string]bool{"read_only": true, "required": true}},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	for _, r := range set.Rules {
		if r.OriginalID == "ITEM_ID" {
			t.Errorf("read_only attribute leaked rule %s", r.ID)
		}
	}
}

func TestMapAttributesNumericGetsMinValue(t *testing.T) {
	attrs := []Attribute{
		{ID: "WEIGHT", ValueType: "number_unit", Tags: map[string]bool{}},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	r, ok := rulesByID(set)["WEIGHT_min_value"]
	if !ok {
		t.Fatal("numeric attribute should produce a MIN_VALUE rule")
	}
	if r.DataType != canonical.TypeFloat {
		t.Errorf("data type = %s, want FLOAT", r.DataType)
	}
}

func TestMapAttributesCategorySettings(t *testing.T) {
	conditions := []ItemCondition{{ID: "new", Name: "Novo"}, {ID: "used", Name: "Usado"}}
	set := MapAttributes(testCategory(), nil, conditions, nil)
	byID := rulesByID(set)

	title, ok := byID["title_max_length"]
	if !ok {
		t.Fatal("max_title_length setting should produce a title rule")
	}
	if got := title.Params[canonical.ParamMaxLength]; got != 60 {
		t.Errorf("title max length = %v, want 60", got)
	}

	cond, ok := byID["condition_enum"]
	if !ok {
		t.Fatal("conditions should produce a condition ENUM rule")
	}
	valid, msg := canonical.Validate(canonical.NewRegistry(), cond, "used")
	if !valid {
		t.Errorf("condition 'used' should pass the generated rule: %s", msg)
	}
	valid, _ = canonical.Validate(canonical.NewRegistry(), cond, "refurbished")
	if valid {
		t.Error("condition outside the vocabulary should fail")
	}
}

func TestMapAttributesListingTypes(t *testing.T) {
	listingTypes := []ListingType{
		{ID: "gold_special", Name: "Classic"},
		{ID: "gold_pro", Name: "Premium"},
	}
	set := MapAttributes(testCategory(), nil, nil, listingTypes)

	lt, ok := rulesByID(set)["listing_type_enum"]
	if !ok {
		t.Fatal("listing types should produce a listing_type ENUM rule")
	}
	if lt.FieldName != "listing_type_id" {
		t.Errorf("field = %q, want listing_type_id", lt.FieldName)
	}
	valid, msg := canonical.Validate(canonical.NewRegistry(), lt, "gold_pro")
	if !valid {
		t.Errorf("listing type in the vocabulary should pass: %s", msg)
	}
	valid, _ = canonical.Validate(canonical.NewRegistry(), lt, "silver")
	if valid {
		t.Error("listing type outside the vocabulary should fail")
	}

	if _, ok := rulesByID(MapAttributes(testCategory(), nil, nil, nil))["listing_type_enum"]; ok {
		t.Error("no listing types should mean no listing_type rule")
	}
}

func TestMapValueType(t *testing.T) {
	cases := map[string]canonical.DataType{
		"number":      canonical.TypeFloat,
		"number_unit": canonical.TypeFloat,
		"boolean":     canonical.TypeBoolean,
		"list":        canonical.TypeArray,
		"date":        canonical.TypeDate,
		"string":      canonical.TypeString,
		"":            canonical.TypeString,
	}
	for in, want := range cases {
		if got := mapValueType(in); got != want {
			t.Errorf("mapValueType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestEnrichDependencies(t *testing.T) {
	attrs := []Attribute{
		{ID: "MODEL", ValueType: "string", Tags: map[string]bool{"required": true}, DependsOn: []string{"BRAND"}},
	}
	set := MapAttributes(testCategory(), attrs, nil, nil)
	EnrichDependencies(set, attrs)

	r := rulesByID(set)["MODEL_required"]
	if len(r.DependsOn) != 1 || r.DependsOn[0] != "BRAND" {
		t.Errorf("depends_on = %v, want [BRAND]", r.DependsOn)
	}
}

func TestValidateSetRejectsDuplicateIDs(t *testing.T) {
	set := &canonical.RuleSet{
		Rules: []canonical.Rule{{ID: "dup"}, {ID: "dup"}},
	}
	if err := validateSet(set); err == nil {
		t.Error("duplicate rule ids should be rejected")
	}
	if err := validateSet(MapAttributes(testCategory(), nil, nil, nil)); err != nil {
		t.Errorf("generated set should be valid: %v", err)
	}
}
