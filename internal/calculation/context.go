package calculation

import (
	"errors"
	"fmt"
	"strings"

	"orcamentos/internal/domain/entities"
)

var ErrInvalidSettings = errors.New("invalid company settings")

const (
	DefaultCurrency = "BRL"

	DefaultTaxRate       = 0.18
	DefaultISSRate       = 0.05
	DefaultPISCOFINSRate = 0.038
	DefaultICMSRate      = 0.18
	DefaultIPIRate       = 0.05

	DefaultProfitMargin                = 0.30
	DefaultComplexityFactor            = 1.0
	DefaultRiskFactor                  = 1.1
	DefaultMaterialWasteFactor         = 1.1
	DefaultEquipmentDepreciationFactor = 1.05
	DefaultEquipmentFactor             = 1.05
)

type TaxRates struct {
	Default   float64            `json:"default"`
	ISS       float64            `json:"iss"`
	PISCOFINS float64            `json:"pis_cofins"`
	ICMS      float64            `json:"icms"`
	IPI       float64            `json:"ipi"`
	Custom    map[string]float64 `json:"custom,omitempty"`
}

type Settings struct {
	ProfitMargin                float64                 `json:"profit_margin"`
	ComplexityFactor            float64                 `json:"complexity_factor"`
	RiskFactor                  float64                 `json:"risk_factor"`
	MaterialWasteFactor         float64                 `json:"material_waste_factor"`
	EquipmentDepreciationFactor float64                 `json:"equipment_depreciation_factor"`
	EquipmentFactor             float64                 `json:"equipment_factor"`
	DiscountRules               []entities.DiscountRule `json:"discount_rules,omitempty"`
}

// Context is the fully defaulted, validated pricing context of one
// calculation.
type Context struct {
	CompanyID string   `json:"company_id"`
	Currency  string   `json:"currency"`
	TaxRates  TaxRates `json:"tax_rates"`
	Settings  Settings `json:"settings"`
}

// Overrides replaces parts of the company context for a single calculation.
// TaxRates keys are default, iss, pis_cofins, icms and ipi; any other key is
// a custom rate.
type Overrides struct {
	Currency string             `json:"currency,omitempty"`
	TaxRates map[string]float64 `json:"tax_rates,omitempty"`
}

// NewContext builds the calculation context of a company, filling unset
// settings with defaults.
func NewContext(company entities.Company) (Context, error) {
	s := company.Settings
	c := Context{
		CompanyID: company.ID,
		Currency:  DefaultCurrency,
		TaxRates: TaxRates{
			Default:   valueOr(s.TaxRate, DefaultTaxRate),
			ISS:       valueOr(s.ISSRate, DefaultISSRate),
			PISCOFINS: valueOr(s.PISCOFINSRate, DefaultPISCOFINSRate),
			ICMS:      valueOr(s.ICMSRate, DefaultICMSRate),
			IPI:       valueOr(s.IPIRate, DefaultIPIRate),
		},
		Settings: Settings{
			ProfitMargin:                valueOr(s.ProfitMargin, DefaultProfitMargin),
			ComplexityFactor:            valueOr(s.ComplexityFactor, DefaultComplexityFactor),
			RiskFactor:                  valueOr(s.RiskFactor, DefaultRiskFactor),
			MaterialWasteFactor:         valueOr(s.MaterialWasteFactor, DefaultMaterialWasteFactor),
			EquipmentDepreciationFactor: valueOr(s.EquipmentDepreciationFactor, DefaultEquipmentDepreciationFactor),
			EquipmentFactor:             valueOr(s.EquipmentFactor, DefaultEquipmentFactor),
			DiscountRules:               s.DiscountRules,
		},
	}
	if cur := strings.TrimSpace(s.Currency); cur != "" {
		c.Currency = strings.ToUpper(cur)
	}
	if len(s.CustomRates) > 0 {
		c.TaxRates.Custom = make(map[string]float64, len(s.CustomRates))
		for k, v := range s.CustomRates {
			c.TaxRates.Custom[k] = v
		}
	}
	if err := c.validate(); err != nil {
		return Context{}, err
	}
	return c, nil
}

func (c Context) withOverrides(o Overrides) (Context, error) {
	if cur := strings.TrimSpace(o.Currency); cur != "" {
		c.Currency = strings.ToUpper(cur)
	}
	if len(o.TaxRates) > 0 {
		custom := make(map[string]float64, len(c.TaxRates.Custom))
		for k, v := range c.TaxRates.Custom {
			custom[k] = v
		}
		for k, v := range o.TaxRates {
			switch k {
			case "default":
				c.TaxRates.Default = v
			case "iss":
				c.TaxRates.ISS = v
			case "pis_cofins":
				c.TaxRates.PISCOFINS = v
			case "icms":
				c.TaxRates.ICMS = v
			case "ipi":
				c.TaxRates.IPI = v
			default:
				custom[k] = v
			}
		}
		c.TaxRates.Custom = custom
	}
	if err := c.validate(); err != nil {
		return Context{}, err
	}
	return c, nil
}

func (c Context) validate() error {
	rates := map[string]float64{
		"tax_rate":        c.TaxRates.Default,
		"iss_rate":        c.TaxRates.ISS,
		"pis_cofins_rate": c.TaxRates.PISCOFINS,
		"icms_rate":       c.TaxRates.ICMS,
		"ipi_rate":        c.TaxRates.IPI,
	}
	for name, v := range c.TaxRates.Custom {
		rates[name] = v
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %v", ErrInvalidSettings, name, v)
		}
	}

	if c.Settings.ProfitMargin <= -1 {
		return fmt.Errorf("%w: profit_margin must be greater than -1, got %v", ErrInvalidSettings, c.Settings.ProfitMargin)
	}
	factors := map[string]float64{
		"complexity_factor":             c.Settings.ComplexityFactor,
		"risk_factor":                   c.Settings.RiskFactor,
		"material_waste_factor":         c.Settings.MaterialWasteFactor,
		"equipment_depreciation_factor": c.Settings.EquipmentDepreciationFactor,
		"equipment_factor":              c.Settings.EquipmentFactor,
	}
	for name, v := range factors {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidSettings, name, v)
		}
	}
	for i, rule := range c.Settings.DiscountRules {
		if rule.MinAmount < 0 || rule.DiscountRate < 0 || rule.DiscountRate > 1 {
			return fmt.Errorf("%w: discount rule %d is out of range", ErrInvalidSettings, i)
		}
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("%w: currency must be an ISO 4217 code, got %q", ErrInvalidSettings, c.Currency)
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
