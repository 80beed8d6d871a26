package response

import (
	"time"

	"orcamentos/internal/domain/entities"
)

type TemplateResponse struct {
	ID               string                    `json:"id"`
	CompanyID        string                    `json:"company_id"`
	Name             string                    `json:"name"`
	Description      string                    `json:"description,omitempty"`
	IsActive         bool                      `json:"is_active"`
	CalculationRules entities.CalculationRules `json:"calculation_rules"`
	Categories       []entities.Category       `json:"categories"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func FromTemplate(t entities.Template) TemplateResponse {
	categories := t.Categories
	if categories == nil {
		categories = []entities.Category{}
	}
	return TemplateResponse{
		ID:               t.ID,
		CompanyID:        t.CompanyID,
		Name:             t.Name,
		Description:      t.Description,
		IsActive:         t.Active,
		CalculationRules: t.CalculationRules,
		Categories:       categories,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
