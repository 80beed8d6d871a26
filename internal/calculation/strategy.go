package calculation

import (
	"strings"
	"time"

	"orcamentos/internal/domain/entities"
)

// Kind names a pricing strategy.
type Kind string

const (
	KindDefault    Kind = "default"
	KindIndustrial Kind = "industrial"
	KindService    Kind = "service"
)

// Kinds lists every strategy, in the order they are exposed.
func Kinds() []Kind {
	return []Kind{KindDefault, KindIndustrial, KindService}
}

// ParseKind resolves a template strategy name. Unknown or empty names resolve
// to KindDefault.
func ParseKind(name string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindIndustrial:
		return KindIndustrial
	case KindService:
		return KindService
	default:
		return KindDefault
	}
}

// Strategy validates and prices items of a template.
type Strategy interface {
	Kind() Kind
	Validate(tpl entities.Template, items []Item) ValidationResult
	Calculate(tpl entities.Template, items []Item, cctx Context) CalculationResult
}

func StrategyFor(kind Kind, now func() time.Time) Strategy {
	if now == nil {
		now = time.Now
	}
	switch kind {
	case KindIndustrial:
		return industrialStrategy{now: now}
	case KindService:
		return serviceStrategy{now: now}
	case KindDefault:
		return defaultStrategy{now: now}
	default:
		return defaultStrategy{now: now}
	}
}

// itemAdjuster turns the resolved amount of an item into its priced amount,
// recording any adjustment in calculations.
type itemAdjuster func(category entities.Category, values FieldValues, base float64, calculations map[string]any) float64

type aggregate struct {
	items     []CalculatedItem
	base      float64
	breakdown map[string]float64
	warnings  []string
}

// aggregateItems resolves every item whose category exists in the template.
// Unknown categories are reported by validation and skipped here.
func aggregateItems(tpl entities.Template, items []Item, hook formulaHook, adjust itemAdjuster) aggregate {
	agg := aggregate{
		items:     make([]CalculatedItem, 0, len(items)),
		breakdown: map[string]float64{},
	}
	for _, item := range items {
		category, ok := tpl.Category(item.CategoryID)
		if !ok {
			continue
		}
		res := resolveItem(category, item.FieldValues, hook)
		amount := res.amount
		if adjust != nil {
			amount = adjust(category, item.FieldValues, res.amount, res.calculations)
		}

		agg.items = append(agg.items, CalculatedItem{
			CategoryID:   item.CategoryID,
			FieldValues:  item.FieldValues,
			Amount:       amount,
			Order:        item.Order,
			Calculations: res.calculations,
		})
		agg.base += amount
		agg.breakdown[item.CategoryID] += amount
		agg.warnings = append(agg.warnings, res.warnings...)
	}
	return agg
}

// subtotals keys category totals by category name. Every template category is
// present, zero when it has no items.
func (a aggregate) subtotals(tpl entities.Template) map[string]float64 {
	out := make(map[string]float64, len(tpl.Categories))
	for _, c := range tpl.Categories {
		out[c.Name] += a.breakdown[c.ID]
	}
	return out
}

func (a aggregate) warningList() []string {
	if a.warnings == nil {
		return []string{}
	}
	return a.warnings
}

// Formula hook names. A calculated field whose formula contains one of them is
// priced by the strategy instead of the evaluator.
const (
	hookLaborHours       = "horas_trabalho"
	hookMaterialCost     = "custo_material"
	hookEquipmentCost    = "custo_equipamento"
	hookConsultingHours  = "horas_consultoria"
	hookFixedServiceCost = "custo_servico_fixo"
	hookResultBasedCost  = "custo_por_resultado"
)

var formulaHooks = map[Kind][]string{
	KindIndustrial: {hookLaborHours, hookMaterialCost, hookEquipmentCost},
	KindService:    {hookConsultingHours, hookFixedServiceCost, hookResultBasedCost},
}

// hookedFormula reports whether the strategy of kind prices formula itself.
func hookedFormula(kind Kind, formula string) bool {
	for _, name := range formulaHooks[kind] {
		if strings.Contains(formula, name) {
			return true
		}
	}
	return false
}
