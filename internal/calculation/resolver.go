package calculation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"orcamentos/internal/domain/entities"
)

// formulaHook lets a strategy price a calculated field itself. ok=false falls
// back to the generic evaluator.
type formulaHook func(formula string, values FieldValues) (amount float64, ok bool)

type resolution struct {
	amount       float64
	calculations map[string]any
	warnings     []string
}

// resolveItem walks the category fields in order and sums the contribution of
// each one for a single item.
func resolveItem(category entities.Category, values FieldValues, hook formulaHook) resolution {
	res := resolution{calculations: map[string]any{}}

	for _, field := range category.Fields {
		if field.IsCalculated() {
			v, err := evaluateField(category, field, values, res.calculations, hook)
			if err != nil {
				res.warnings = append(res.warnings,
					fmt.Sprintf("field %q in category %q: %v", field.Label, category.Name, err))
				v = 0
			}
			res.calculations[field.Label] = v
			res.amount += v
			continue
		}

		raw, ok := values.lookup(field)
		if !ok {
			continue
		}
		if pair, isPair := asUnitCost(raw); isPair {
			total := pair.Value * pair.UnitCost
			res.calculations[field.Label] = UnitCostCalculation{Value: pair.Value, UnitCost: pair.UnitCost, Total: total}
			res.amount += total
			continue
		}
		if n, isNum := toNumber(raw); isNum {
			res.calculations[field.Label] = n
			res.amount += n
			continue
		}
		res.calculations[field.Label] = raw
	}
	return res
}

func evaluateField(category entities.Category, field entities.Field, values FieldValues, computed map[string]any, hook formulaHook) (float64, error) {
	calc := field.Calculation
	if hook != nil {
		if v, ok := hook(calc.Formula, values); ok {
			return v, nil
		}
	}

	vars := make(map[string]float64, len(calc.DependsOn))
	for _, dep := range calc.DependsOn {
		vars[VariableName(dep)] = dependencyValue(category, dep, values, computed)
	}
	return Evaluate(calc.Formula, vars)
}

// dependencyValue resolves a formula dependency: a submitted value keyed by the
// dependency name, then the value of the category field it names (by id, label
// or variable name), then a value computed earlier in the same item.
func dependencyValue(category entities.Category, dep string, values FieldValues, computed map[string]any) float64 {
	if raw, ok := values.find(dep); ok {
		return numeric(raw)
	}
	for _, f := range category.Fields {
		if f.ID != dep && f.Label != dep && VariableName(f.Label) != VariableName(dep) {
			continue
		}
		if f.IsCalculated() {
			if v, ok := computed[f.Label]; ok {
				return numeric(v)
			}
			continue
		}
		if raw, ok := values.lookup(f); ok {
			return numeric(raw)
		}
	}
	if v, ok := computed[dep]; ok {
		return numeric(v)
	}
	return 0
}

// lookup finds the submitted value of a field by label, id, then snake-cased
// label. Nil and blank strings count as missing.
func (v FieldValues) lookup(field entities.Field) (any, bool) {
	for _, key := range []string{field.Label, field.ID, VariableName(field.Label)} {
		if key == "" {
			continue
		}
		if raw, ok := v[key]; ok && !isEmpty(raw) {
			return raw, true
		}
	}
	return nil, false
}

// find resolves a dependency name: exact key first, then any key with the same
// variable name (smallest key wins).
func (v FieldValues) find(name string) (any, bool) {
	if raw, ok := v[name]; ok && !isEmpty(raw) {
		return raw, true
	}
	want := VariableName(name)
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if VariableName(k) == want && !isEmpty(v[k]) {
			return v[k], true
		}
	}
	return nil, false
}

// number returns the first non-zero numeric value among keys, or 0. A key
// holding 0 falls through to the next alias.
func (v FieldValues) number(keys ...string) float64 {
	for _, k := range keys {
		if raw, ok := v.find(k); ok {
			if n := numeric(raw); n != 0 {
				return n
			}
		}
	}
	return 0
}

// text returns the lower-cased string value of key, or def.
func (v FieldValues) text(key, def string) string {
	raw, ok := v.find(key)
	if !ok {
		return def
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(raw)))
}

func isEmpty(raw any) bool {
	switch x := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// toNumber reports whether raw is a number or a numeric string.
func toNumber(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// numeric coerces any recorded value to a number, 0 when it has none.
func numeric(raw any) float64 {
	if n, ok := toNumber(raw); ok {
		return n
	}
	switch x := raw.(type) {
	case UnitCostCalculation:
		return x.Total
	case UnitCost:
		return x.Value * x.UnitCost
	case bool:
		if x {
			return 1
		}
	}
	if pair, ok := asUnitCost(raw); ok {
		return pair.Value * pair.UnitCost
	}
	return 0
}

// asUnitCost recognizes {value, unit_cost} pairs, either typed or decoded from
// JSON.
func asUnitCost(raw any) (UnitCost, bool) {
	switch x := raw.(type) {
	case UnitCost:
		return x, true
	case *UnitCost:
		if x == nil {
			return UnitCost{}, false
		}
		return *x, true
	case map[string]any:
		value, hasValue := x["value"]
		cost, hasCost := x["unit_cost"]
		if !hasCost {
			cost, hasCost = x["unitCost"]
		}
		if !hasValue || !hasCost {
			return UnitCost{}, false
		}
		return UnitCost{Value: numeric(value), UnitCost: numeric(cost)}, true
	}
	return UnitCost{}, false
}
