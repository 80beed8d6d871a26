package calculation

import (
	"errors"
	"fmt"
	"strings"

	"orcamentos/internal/domain/entities"
)

var ErrInvalidTemplate = errors.New("invalid template")

// CheckTemplate verifies the structure of a template before it is stored:
// names and labels are set, field kinds are known, calculated fields carry a
// parsable formula whose variables are all listed in dependsOn, and depend only
// on fields of their own category declared before them.
func CheckTemplate(tpl entities.Template) error {
	kind := ParseKind(tpl.CalculationRules.Strategy)
	var problems []string
	if strings.TrimSpace(tpl.Name) == "" {
		problems = append(problems, "template name is required")
	}
	if len(tpl.Categories) == 0 {
		problems = append(problems, "template must have at least one category")
	}

	for ci, category := range tpl.Categories {
		if strings.TrimSpace(category.Name) == "" {
			problems = append(problems, fmt.Sprintf("category %d: name is required", ci))
		}

		declared := map[string]bool{}
		for _, f := range category.Fields {
			declared[f.Label] = true
			declared[VariableName(f.Label)] = true
			if f.ID != "" {
				declared[f.ID] = true
			}
		}

		for fi, field := range category.Fields {
			where := fmt.Sprintf("category %q field %d", category.Name, fi)
			if strings.TrimSpace(field.Label) == "" {
				problems = append(problems, where+": label is required")
			}
			if !field.Kind.Valid() {
				problems = append(problems, fmt.Sprintf("%s: unknown field type %q", where, field.Kind))
			}
			if field.Kind == entities.FieldKindSelect && len(field.Options) == 0 {
				problems = append(problems, where+": select field needs options")
			}

			if field.Kind == entities.FieldKindCalculated {
				switch {
				case field.Calculation == nil || strings.TrimSpace(field.Calculation.Formula) == "":
					problems = append(problems, where+": calculated field needs a formula")
				default:
					if err := ParseFormula(field.Calculation.Formula); err != nil {
						problems = append(problems, fmt.Sprintf("%s: %v", where, err))
					} else if !hookedFormula(kind, field.Calculation.Formula) {
						problems = append(problems, unboundVariables(where, field.Calculation)...)
					}
					for _, dep := range field.Calculation.DependsOn {
						if !declared[dep] && !declared[VariableName(dep)] {
							problems = append(problems, fmt.Sprintf("%s: depends on unknown field %q", where, dep))
							continue
						}
						if isLaterCalculated(category.Fields[fi:], dep) {
							problems = append(problems, fmt.Sprintf("%s: depends on calculated field %q declared after it", where, dep))
						}
					}
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(problems, "; "))
	}
	return nil
}

// unboundVariables reports formula identifiers that no dependsOn entry binds.
func unboundVariables(where string, calc *entities.FieldCalculation) []string {
	names, err := FormulaVariables(calc.Formula)
	if err != nil {
		return nil
	}
	bound := make(map[string]bool, len(calc.DependsOn))
	for _, dep := range calc.DependsOn {
		bound[VariableName(dep)] = true
	}
	var problems []string
	for _, name := range names {
		if !bound[name] {
			problems = append(problems, fmt.Sprintf("%s: formula variable %q is not listed in depends_on", where, name))
		}
	}
	return problems
}

// isLaterCalculated reports whether dep names a calculated field in rest,
// which starts at the field being checked.
func isLaterCalculated(rest []entities.Field, dep string) bool {
	for _, f := range rest {
		if f.Kind != entities.FieldKindCalculated {
			continue
		}
		if f.Label == dep || f.ID == dep || VariableName(f.Label) == VariableName(dep) {
			return true
		}
	}
	return false
}
