package meli

import (
	"fmt"
	"time"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
)

// MarketplaceID identifies this adapter in canonical rules.
const MarketplaceID = "meli"

// mapValueType translates the marketplace's value types to canonical tags.
func mapValueType(valueType string) canonical.DataType {
	switch valueType {
	case "number", "number_unit":
		return canonical.TypeFloat
	case "boolean":
		return canonical.TypeBoolean
	case "list":
		return canonical.TypeArray
	case "date":
		return canonical.TypeDate
	default:
		return canonical.TypeString
	}
}

// MapAttributes translates a category's attribute vocabulary into a canonical
// rule set. Required attributes produce a REQUIRED rule plus any derived
// constraint rules; optional attributes produce constraint rules only.
// Conditions and listing types become ENUM rules on their item fields.
func MapAttributes(category *Category, attrs []Attribute, conditions []ItemCondition, listingTypes []ListingType) *canonical.RuleSet {
	set := &canonical.RuleSet{
		MarketplaceID: MarketplaceID,
		Name:          category.Name,
		Version:       time.Now().UTC().Format("2006-01-02"),
		Metadata: map[string]interface{}{
			"category_id": category.ID,
			"imported_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if category.Settings.MaxTitleLength > 0 {
		set.Rules = append(set.Rules, canonical.Rule{
			ID:            "title_max_length",
			MarketplaceID: MarketplaceID,
			FieldName:     "title",
			RuleType:      canonical.RuleMaxLength,
			DataType:      canonical.TypeString,
			Params:        map[string]interface{}{canonical.ParamMaxLength: category.Settings.MaxTitleLength},
			Severity:      canonical.SeverityError,
			IsActive:      true,
		})
	}

	if len(conditions) > 0 {
		allowed := make([]interface{}, 0, len(conditions))
		for _, cond := range conditions {
			allowed = append(allowed, map[string]interface{}{"id": cond.ID, "name": cond.Name})
		}
		set.Rules = append(set.Rules, canonical.Rule{
			ID:            "condition_enum",
			MarketplaceID: MarketplaceID,
			FieldName:     "condition",
			RuleType:      canonical.RuleEnum,
			DataType:      canonical.TypeString,
			Params:        map[string]interface{}{canonical.ParamAllowedValues: allowed},
			Severity:      canonical.SeverityError,
			IsActive:      true,
		})
	}

	if len(listingTypes) > 0 {
		allowed := make([]interface{}, 0, len(listingTypes))
		for _, lt := range listingTypes {
			allowed = append(allowed, map[string]interface{}{"id": lt.ID, "name": lt.Name})
		}
		set.Rules = append(set.Rules, canonical.Rule{
			ID:            "listing_type_enum",
			MarketplaceID: MarketplaceID,
			FieldName:     "listing_type_id",
			RuleType:      canonical.RuleEnum,
			DataType:      canonical.TypeString,
			Params:        map[string]interface{}{canonical.ParamAllowedValues: allowed},
			Severity:      canonical.SeverityError,
			IsActive:      true,
		})
	}

	for _, attr := range attrs {
		if attr.Tags["read_only"] {
			continue
		}
		set.Rules = append(set.Rules, mapAttribute(attr)...)
	}
	return set
}

// mapAttribute derives the canonical rules of one attribute.
func mapAttribute(attr Attribute) []canonical.Rule {
	dataType := mapValueType(attr.ValueType)
	var rules []canonical.Rule

	if attr.Required() {
		rules = append(rules, canonical.Rule{
			ID:            attr.ID + "_required",
			MarketplaceID: MarketplaceID,
			OriginalID:    attr.ID,
			FieldName:     attr.ID,
			RuleType:      canonical.RuleRequired,
			DataType:      dataType,
			Severity:      canonical.SeverityError,
			DependsOn:     attr.DependsOn,
			IsActive:      true,
		})
	}

	if len(attr.Values) > 0 {
		allowed := make([]interface{}, 0, len(attr.Values))
		for _, v := range attr.Values {
			allowed = append(allowed, map[string]interface{}{"id": v.ID, "name": v.Name})
		}
		rules = append(rules, canonical.Rule{
			ID:            attr.ID + "_enum",
			MarketplaceID: MarketplaceID,
			OriginalID:    attr.ID,
			FieldName:     attr.ID,
			RuleType:      canonical.RuleEnum,
			DataType:      dataType,
			Params:        map[string]interface{}{canonical.ParamAllowedValues: allowed},
			Severity:      canonical.SeverityWarning,
			DependsOn:     attr.DependsOn,
			IsActive:      true,
		})
	}

	if attr.MaxLength > 0 && dataType == canonical.TypeString {
		rules = append(rules, canonical.Rule{
			ID:            attr.ID + "_max_length",
			MarketplaceID: MarketplaceID,
			OriginalID:    attr.ID,
			FieldName:     attr.ID,
			RuleType:      canonical.RuleMaxLength,
			DataType:      dataType,
			Params:        map[string]interface{}{canonical.ParamMaxLength: attr.MaxLength},
			Severity:      canonical.SeverityWarning,
			DependsOn:     attr.DependsOn,
			IsActive:      true,
		})
	}

	if dataType == canonical.TypeFloat {
		rules = append(rules, canonical.Rule{
			ID:            attr.ID + "_min_value",
			MarketplaceID: MarketplaceID,
			OriginalID:    attr.ID,
			FieldName:     attr.ID,
			RuleType:      canonical.RuleMinValue,
			DataType:      dataType,
			Params:        map[string]interface{}{canonical.ParamMinValue: 0},
			Severity:      canonical.SeverityWarning,
			DependsOn:     attr.DependsOn,
			IsActive:      true,
		})
	}

	return rules
}

// EnrichDependencies fills each rule's DependsOn with the other fields that
// share its attribute, so downstream consumers can order corrections.
func EnrichDependencies(set *canonical.RuleSet, attrs []Attribute) {
	byID := make(map[string]Attribute, len(attrs))
	for _, a := range attrs {
		byID[a.ID] = a
	}
	for i := range set.Rules {
		r := &set.Rules[i]
		if r.OriginalID == "" {
			continue
		}
		if a, ok := byID[r.OriginalID]; ok && len(a.DependsOn) > 0 {
			r.DependsOn = append([]string(nil), a.DependsOn...)
		}
	}
}

// validateSet asserts the set invariant that rule ids are unique.
func validateSet(set *canonical.RuleSet) error {
	seen := make(map[string]bool, len(set.Rules))
	for _, r := range set.Rules {
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q in set %s", r.ID, set.Name)
		}
		seen[r.ID] = true
	}
	return nil
}
