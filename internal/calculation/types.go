package calculation

import (
	"fmt"
	"time"
)

// FieldValues maps a field key (label, id or snake-cased label) to the value
// submitted for it.
type FieldValues map[string]any

// Item is one filled category instance submitted for calculation.
type Item struct {
	CategoryID  string      `json:"category_id"`
	FieldValues FieldValues `json:"field_values"`
	Order       int         `json:"order"`
}

// UnitCost is a quantity priced per unit; it contributes Value*UnitCost.
type UnitCost struct {
	Value    float64 `json:"value"`
	UnitCost float64 `json:"unit_cost"`
}

// UnitCostCalculation is the recorded breakdown of a UnitCost value.
type UnitCostCalculation struct {
	Value    float64 `json:"value"`
	UnitCost float64 `json:"unit_cost"`
	Total    float64 `json:"total"`
}

// CalculatedItem is an item after pricing. Calculations records every value
// seen per field label, plus strategy adjustment keys.
type CalculatedItem struct {
	CategoryID   string         `json:"category_id"`
	FieldValues  FieldValues    `json:"field_values"`
	Amount       float64        `json:"amount"`
	Order        int            `json:"order"`
	Calculations map[string]any `json:"calculations"`
}

type IndustrialFactors struct {
	ComplexityFactor float64 `json:"complexity_factor"`
	RiskFactor       float64 `json:"risk_factor"`
	EquipmentFactor  float64 `json:"equipment_factor"`
	FactoredTotal    float64 `json:"factored_total"`
	TaxRate          float64 `json:"tax_rate"`
	ProfitMargin     float64 `json:"profit_margin"`
}

type ServiceDetails struct {
	ISSRate         float64 `json:"iss_rate"`
	ProfitMargin    float64 `json:"profit_margin"`
	DiscountRate    float64 `json:"discount_rate"`
	DiscountApplied float64 `json:"discount_applied"`
}

// Metadata is the audit trail of a calculation. Taxes is always the tax
// amount charged, never a rate.
type Metadata struct {
	BaseTotal         float64            `json:"base_total"`
	Taxes             float64            `json:"taxes"`
	Discounts         *float64           `json:"discounts,omitempty"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	StrategyUsed      string             `json:"strategy_used"`
	CalculationDate   time.Time          `json:"calculation_date"`
	Currency          string             `json:"currency"`

	IndustrialFactors *IndustrialFactors `json:"industrial_factors,omitempty"`
	ServiceDetails    *ServiceDetails    `json:"service_details,omitempty"`
}

type CalculationResult struct {
	Items     []CalculatedItem   `json:"items"`
	Total     float64            `json:"total"`
	Subtotals map[string]float64 `json:"subtotals"`
	Metadata  Metadata           `json:"metadata"`
	Warnings  []string           `json:"warnings"`
}

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newValidationResult() ValidationResult {
	return ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
}

func (v *ValidationResult) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	v.Valid = false
}

func (v *ValidationResult) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
