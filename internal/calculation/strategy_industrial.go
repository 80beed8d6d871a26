package calculation

import (
	"strings"
	"time"

	"orcamentos/internal/domain/entities"
)

var industrialCategoryFactors = map[string]float64{
	"Recursos Humanos": 1.0,
	"Materiais":        1.10,
	"Equipamentos":     1.05,
	"Subcontratação":   1.15,
	"Logística":        1.20,
}

const (
	industrialHoursWarning = 2000
	industrialValueWarning = 1_000_000
)

// industrialStrategy weighs items by category, applies risk and complexity,
// charges ICMS+IPI+PIS/COFINS and then the profit margin.
type industrialStrategy struct {
	now func() time.Time
}

func (industrialStrategy) Kind() Kind { return KindIndustrial }

func (industrialStrategy) Validate(tpl entities.Template, items []Item) ValidationResult {
	return validateItems(tpl, items, func(_ entities.Category, field entities.Field, raw any, result *ValidationResult) {
		if field.Kind != entities.FieldKindNumber {
			return
		}
		n, ok := toNumber(raw)
		if !ok {
			return
		}
		name := VariableName(field.Label)
		if strings.Contains(name, "horas") && n > industrialHoursWarning {
			result.warnf("field %q: %v hours looks too high", field.Label, n)
		}
		if strings.Contains(name, "valor") && n > industrialValueWarning {
			result.warnf("field %q: %v looks too high", field.Label, n)
		}
	})
}

func (s industrialStrategy) Calculate(tpl entities.Template, items []Item, cctx Context) CalculationResult {
	agg := aggregateItems(tpl, items, s.formulaHook(cctx), func(category entities.Category, _ FieldValues, base float64, calcs map[string]any) float64 {
		factor := industrialCategoryFactor(category.Name)
		adjusted := base * factor
		calcs["base_amount"] = base
		calcs["category_factor"] = factor
		calcs["adjusted_amount"] = adjusted
		return adjusted
	})

	st := cctx.Settings
	factored := agg.base * st.RiskFactor * st.ComplexityFactor
	taxRate := cctx.TaxRates.ICMS + cctx.TaxRates.IPI + cctx.TaxRates.PISCOFINS
	taxes := factored * taxRate
	total := (factored + taxes) * (1 + st.ProfitMargin)

	return CalculationResult{
		Items:     agg.items,
		Total:     total,
		Subtotals: agg.subtotals(tpl),
		Metadata: Metadata{
			BaseTotal:         agg.base,
			Taxes:             taxes,
			CategoryBreakdown: agg.breakdown,
			StrategyUsed:      string(KindIndustrial),
			CalculationDate:   s.now().UTC(),
			Currency:          cctx.Currency,
			IndustrialFactors: &IndustrialFactors{
				ComplexityFactor: st.ComplexityFactor,
				RiskFactor:       st.RiskFactor,
				EquipmentFactor:  st.EquipmentFactor,
				FactoredTotal:    factored,
				TaxRate:          taxRate,
				ProfitMargin:     st.ProfitMargin,
			},
		},
		Warnings: agg.warningList(),
	}
}

func (industrialStrategy) formulaHook(cctx Context) formulaHook {
	st := cctx.Settings
	return func(formula string, v FieldValues) (float64, bool) {
		switch {
		case strings.Contains(formula, hookLaborHours):
			hours := v.number("quantidade_horas", "horas")
			rate := v.number("valor_por_hora", "taxa_horaria")
			return hours * rate * st.ComplexityFactor, true
		case strings.Contains(formula, hookMaterialCost):
			qty := v.number("quantidade")
			price := v.number("valor_unitario", "preco_unitario")
			return qty * price * st.MaterialWasteFactor, true
		case strings.Contains(formula, hookEquipmentCost):
			hours := v.number("horas_equipamento")
			rate := v.number("custo_por_hora_equipamento")
			return hours * rate * st.EquipmentDepreciationFactor, true
		}
		return 0, false
	}
}

func industrialCategoryFactor(name string) float64 {
	if f, ok := industrialCategoryFactors[name]; ok {
		return f
	}
	return 1.0
}
