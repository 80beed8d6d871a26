package calculation

import (
	"strings"
	"time"

	"orcamentos/internal/domain/entities"
)

var (
	serviceCategoryFactors = map[string]float64{
		"Consultoria":     1.2,
		"Desenvolvimento": 1.1,
		"Suporte":         1.0,
		"Treinamento":     1.15,
		"Manutenção":      0.9,
	}
	urgencyFactors = map[string]float64{
		"baixa":   0.95,
		"normal":  1.0,
		"alta":    1.2,
		"critica": 1.5,
	}
	experienceFactors = map[string]float64{
		"junior":       0.8,
		"pleno":        1.0,
		"senior":       1.3,
		"especialista": 1.6,
	}
	serviceComplexity = map[string]float64{
		"simples":        0.8,
		"normal":         1.0,
		"complexo":       1.5,
		"muito_complexo": 2.0,
	}
)

const (
	humanResourcesCategory = "Recursos Humanos"
	consultingShare        = 0.7
	executionShare         = 0.3

	minHourlyRate    = 20
	maxHourlyRate    = 1000
	serviceHoursWarn = 500
)

// serviceStrategy weighs items by category and urgency, applies the first
// matching discount rule, charges ISS and then the profit margin.
type serviceStrategy struct {
	now func() time.Time
}

func (serviceStrategy) Kind() Kind { return KindService }

func (serviceStrategy) Validate(tpl entities.Template, items []Item) ValidationResult {
	return validateItems(tpl, items, func(_ entities.Category, field entities.Field, raw any, result *ValidationResult) {
		name := VariableName(field.Label)
		switch field.Kind {
		case entities.FieldKindNumber:
			n, ok := toNumber(raw)
			if !ok {
				return
			}
			if strings.Contains(name, "valor_por_hora") && (n < minHourlyRate || n > maxHourlyRate) {
				result.warnf("field %q: hourly rate %v is outside the usual range (%d-%d)", field.Label, n, minHourlyRate, maxHourlyRate)
			}
			if strings.Contains(name, "horas") && n > serviceHoursWarn {
				result.warnf("field %q: %v hours looks too high", field.Label, n)
			}
		case entities.FieldKindSelect:
			if !strings.Contains(name, "complexidade") {
				return
			}
			// already reported by the options check
			if len(field.Options) > 0 && !field.Options.Contains(strings.TrimSpace(stringValue(raw))) {
				return
			}
			value := strings.ToLower(strings.TrimSpace(stringValue(raw)))
			if _, ok := serviceComplexity[value]; !ok {
				result.errorf("invalid complexity %q for field %q: must be one of simples, normal, complexo, muito_complexo", stringValue(raw), field.Label)
			}
		}
	})
}

func (s serviceStrategy) Calculate(tpl entities.Template, items []Item, cctx Context) CalculationResult {
	agg := aggregateItems(tpl, items, s.formulaHook(), func(category entities.Category, values FieldValues, base float64, calcs map[string]any) float64 {
		factor := serviceCategoryFactor(category.Name) * urgencyFactor(values.text("urgencia", "normal"))
		adjusted := base * factor
		calcs["base_amount"] = base
		calcs["difficulty_factor"] = factor
		calcs["adjusted_amount"] = adjusted
		return adjusted
	})

	st := cctx.Settings
	discountRate := firstDiscountRate(st.DiscountRules, agg.base)
	discount := agg.base * discountRate
	discounted := agg.base - discount
	iss := discounted * cctx.TaxRates.ISS
	total := (discounted + iss) * (1 + st.ProfitMargin)

	subtotals := agg.subtotals(tpl)
	if hr, ok := subtotals[humanResourcesCategory]; ok {
		subtotals[humanResourcesCategory+" (Consultoria)"] = hr * consultingShare
		subtotals[humanResourcesCategory+" (Execução)"] = hr * executionShare
	}

	return CalculationResult{
		Items:     agg.items,
		Total:     total,
		Subtotals: subtotals,
		Metadata: Metadata{
			BaseTotal:         agg.base,
			Taxes:             iss,
			Discounts:         &discount,
			CategoryBreakdown: agg.breakdown,
			StrategyUsed:      string(KindService),
			CalculationDate:   s.now().UTC(),
			Currency:          cctx.Currency,
			ServiceDetails: &ServiceDetails{
				ISSRate:         cctx.TaxRates.ISS,
				ProfitMargin:    st.ProfitMargin,
				DiscountRate:    discountRate,
				DiscountApplied: discount,
			},
		},
		Warnings: agg.warningList(),
	}
}

func (serviceStrategy) formulaHook() formulaHook {
	return func(formula string, v FieldValues) (float64, bool) {
		switch {
		case strings.Contains(formula, hookConsultingHours):
			hours := v.number("quantidade_horas", "horas")
			rate := v.number("valor_por_hora", "taxa_horaria")
			return hours * rate * lookupFactor(experienceFactors, v.text("nivel_experiencia", "pleno")), true
		case strings.Contains(formula, hookFixedServiceCost):
			base := v.number("valor_base")
			return base * lookupFactor(serviceComplexity, v.text("complexidade", "normal")), true
		case strings.Contains(formula, hookResultBasedCost):
			base := v.number("valor_base")
			expected := v.number("resultados_esperados")
			if expected == 0 {
				expected = 1
			}
			return base*expected + v.number("bonus_performance"), true
		}
		return 0, false
	}
}

// firstDiscountRate returns the rate of the first rule whose threshold the
// base reaches. Rules are not sorted.
func firstDiscountRate(rules []entities.DiscountRule, base float64) float64 {
	for _, r := range rules {
		if base >= r.MinAmount {
			return r.DiscountRate
		}
	}
	return 0
}

func serviceCategoryFactor(name string) float64 {
	return lookupFactor(serviceCategoryFactors, name)
}

func urgencyFactor(level string) float64 {
	return lookupFactor(urgencyFactors, level)
}

func lookupFactor(table map[string]float64, key string) float64 {
	if f, ok := table[key]; ok {
		return f
	}
	return 1.0
}
