package entities

import (
	"encoding/json"
	"time"
)

// FieldKind is the input type of a template field.
type FieldKind string

const (
	FieldKindText       FieldKind = "text"
	FieldKindNumber     FieldKind = "number"
	FieldKindSelect     FieldKind = "select"
	FieldKindDate       FieldKind = "date"
	FieldKindBoolean    FieldKind = "boolean"
	FieldKindCalculated FieldKind = "calculated"
)

func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindText, FieldKindNumber, FieldKindSelect, FieldKindDate, FieldKindBoolean, FieldKindCalculated:
		return true
	}
	return false
}

// FieldCalculation is the formula of a calculated field. DependsOn lists the
// names bound as formula variables, in order.
type FieldCalculation struct {
	Formula   string   `json:"formula"`
	DependsOn []string `json:"depends_on"`
}

// FieldOptions is the allowed value list of a select field.
//
// Stored templates carry it either as a plain array or wrapped as
// {"values": [...]}; both decode to the same list.
type FieldOptions []string

func (o *FieldOptions) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}

	var wrapped struct {
		Values []string `json:"values"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*o = wrapped.Values
	return nil
}

func (o FieldOptions) Contains(value string) bool {
	for _, opt := range o {
		if opt == value {
			return true
		}
	}
	return false
}

type Field struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Kind        FieldKind         `json:"type"`
	Required    bool              `json:"required"`
	Options     FieldOptions      `json:"options,omitempty"`
	Validation  string            `json:"validation,omitempty"`
	Order       int               `json:"order"`
	Calculation *FieldCalculation `json:"calculation,omitempty"`
}

// IsCalculated reports whether the field is computed from a formula instead of
// read from the submitted values.
func (f Field) IsCalculated() bool {
	return f.Kind == FieldKindCalculated && f.Calculation != nil
}

type Category struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Order      int     `json:"order"`
	Repeatable bool    `json:"is_repeatable"`
	Fields     []Field `json:"fields"`
}

// CalculationRules selects the pricing strategy of a template. Formula and
// Variables are descriptive only.
type CalculationRules struct {
	Strategy  string   `json:"strategy,omitempty"`
	Formula   string   `json:"formula,omitempty"`
	Variables []string `json:"variables,omitempty"`
}

// Template is a company-owned budget form: ordered categories of typed fields
// plus the rules that price it.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (company_id-index): company_id
//   - categories are nested in the template item as a JSON document
type Template struct {
	ID               string           `json:"id"`
	CompanyID        string           `json:"company_id"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Active           bool             `json:"is_active"`
	CalculationRules CalculationRules `json:"calculation_rules"`
	Categories       []Category       `json:"categories"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (t Template) Category(id string) (Category, bool) {
	for _, c := range t.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

type TemplateFilter struct {
	Search string
	Active *bool
	Page   int
	Limit  int
}
