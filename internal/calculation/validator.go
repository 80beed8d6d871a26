package calculation

import (
	"fmt"
	"strconv"
	"strings"

	"orcamentos/internal/domain/entities"
)

// fieldCheck is a strategy specific check run on every present field value.
type fieldCheck func(category entities.Category, field entities.Field, raw any, result *ValidationResult)

// validateItems runs the checks shared by all strategies, then extra.
func validateItems(tpl entities.Template, items []Item, extra fieldCheck) ValidationResult {
	result := newValidationResult()

	byCategory := make(map[string][]Item, len(tpl.Categories))
	for i, item := range items {
		if _, ok := tpl.Category(item.CategoryID); !ok {
			result.warnf("item %d references unknown category %q and was ignored", i, item.CategoryID)
			continue
		}
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
	}

	for _, category := range tpl.Categories {
		catItems := byCategory[category.ID]
		if !category.Repeatable && len(catItems) == 0 {
			result.warnf("category %q has no items", category.Name)
		}

		for _, item := range catItems {
			for _, field := range category.Fields {
				raw, present := item.FieldValues.lookup(field)
				if !present {
					if field.Required && !field.IsCalculated() {
						result.errorf("required field %q is empty in category %q", field.Label, category.Name)
					}
					continue
				}
				checkField(field, raw, &result)
				if extra != nil {
					extra(category, field, raw, &result)
				}
			}
		}
	}
	return result
}

func checkField(field entities.Field, raw any, result *ValidationResult) {
	switch field.Kind {
	case entities.FieldKindNumber:
		if _, isPair := asUnitCost(raw); isPair {
			return
		}
		n, ok := toNumber(raw)
		if !ok {
			result.errorf("field %q must be a valid number", field.Label)
			return
		}
		min, max := parseRule(field.Validation)
		if min != nil && n < *min {
			result.errorf("field %q must be at least %v", field.Label, *min)
		}
		if max != nil && n > *max {
			result.errorf("field %q must be at most %v", field.Label, *max)
		}
	case entities.FieldKindSelect:
		if len(field.Options) == 0 {
			return
		}
		value := strings.TrimSpace(stringValue(raw))
		if !field.Options.Contains(value) {
			result.errorf("invalid value %q for field %q: must be one of %s", value, field.Label, strings.Join(field.Options, ", "))
		}
	}
}

// parseRule reads "min:x,max:y" validation rules. Unknown parts are ignored.
func parseRule(rule string) (min, max *float64) {
	for _, part := range strings.Split(rule, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "min":
			min = &n
		case "max":
			max = &n
		}
	}
	return min, max
}

func stringValue(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
