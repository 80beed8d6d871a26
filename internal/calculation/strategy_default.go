package calculation

import (
	"time"

	"orcamentos/internal/domain/entities"
)

// defaultStrategy charges the default tax rate over the plain item sum.
type defaultStrategy struct {
	now func() time.Time
}

func (defaultStrategy) Kind() Kind { return KindDefault }

func (defaultStrategy) Validate(tpl entities.Template, items []Item) ValidationResult {
	return validateItems(tpl, items, nil)
}

func (s defaultStrategy) Calculate(tpl entities.Template, items []Item, cctx Context) CalculationResult {
	agg := aggregateItems(tpl, items, nil, nil)
	taxes := agg.base * cctx.TaxRates.Default

	return CalculationResult{
		Items:     agg.items,
		Total:     agg.base + taxes,
		Subtotals: agg.subtotals(tpl),
		Metadata: Metadata{
			BaseTotal:         agg.base,
			Taxes:             taxes,
			CategoryBreakdown: agg.breakdown,
			StrategyUsed:      string(KindDefault),
			CalculationDate:   s.now().UTC(),
			Currency:          cctx.Currency,
		},
		Warnings: agg.warningList(),
	}
}
