package entities

import "time"

// DiscountRule grants DiscountRate of the base amount once the base reaches
// MinAmount. Rules are evaluated in the order they are stored.
type DiscountRule struct {
	MinAmount    float64 `json:"min_amount"`
	DiscountRate float64 `json:"discount_rate"`
}

// CompanySettings holds the pricing knobs of a company. Nil means "not set";
// the calculation engine fills defaults, so an explicit zero is kept as zero.
type CompanySettings struct {
	Currency      string   `json:"currency,omitempty"`
	TaxRate       *float64 `json:"tax_rate,omitempty"`
	ISSRate       *float64 `json:"iss_rate,omitempty"`
	PISCOFINSRate *float64 `json:"pis_cofins_rate,omitempty"`
	ICMSRate      *float64 `json:"icms_rate,omitempty"`
	IPIRate       *float64 `json:"ipi_rate,omitempty"`

	CustomRates map[string]float64 `json:"custom_rates,omitempty"`

	ProfitMargin                *float64 `json:"profit_margin,omitempty"`
	ComplexityFactor            *float64 `json:"complexity_factor,omitempty"`
	RiskFactor                  *float64 `json:"risk_factor,omitempty"`
	MaterialWasteFactor         *float64 `json:"material_waste_factor,omitempty"`
	EquipmentDepreciationFactor *float64 `json:"equipment_depreciation_factor,omitempty"`
	EquipmentFactor             *float64 `json:"equipment_factor,omitempty"`

	DiscountRules []DiscountRule `json:"discount_rules,omitempty"`
}

// Merge returns s with every field set in patch replacing the stored one.
func (s CompanySettings) Merge(patch CompanySettings) CompanySettings {
	out := s
	if patch.Currency != "" {
		out.Currency = patch.Currency
	}
	mergeRate(&out.TaxRate, patch.TaxRate)
	mergeRate(&out.ISSRate, patch.ISSRate)
	mergeRate(&out.PISCOFINSRate, patch.PISCOFINSRate)
	mergeRate(&out.ICMSRate, patch.ICMSRate)
	mergeRate(&out.IPIRate, patch.IPIRate)
	mergeRate(&out.ProfitMargin, patch.ProfitMargin)
	mergeRate(&out.ComplexityFactor, patch.ComplexityFactor)
	mergeRate(&out.RiskFactor, patch.RiskFactor)
	mergeRate(&out.MaterialWasteFactor, patch.MaterialWasteFactor)
	mergeRate(&out.EquipmentDepreciationFactor, patch.EquipmentDepreciationFactor)
	mergeRate(&out.EquipmentFactor, patch.EquipmentFactor)

	if patch.CustomRates != nil {
		rates := make(map[string]float64, len(s.CustomRates)+len(patch.CustomRates))
		for k, v := range s.CustomRates {
			rates[k] = v
		}
		for k, v := range patch.CustomRates {
			rates[k] = v
		}
		out.CustomRates = rates
	}
	if patch.DiscountRules != nil {
		out.DiscountRules = append([]DiscountRule(nil), patch.DiscountRules...)
	}
	return out
}

func mergeRate(dst **float64, src *float64) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

// Float returns a pointer to v, for building settings literals.
func Float(v float64) *float64 {
	return &v
}

// Company owns templates and budgets.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (email-index): email
type Company struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Document  string          `json:"document,omitempty"`
	Settings  CompanySettings `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
