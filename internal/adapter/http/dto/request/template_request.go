package request

import (
	"errors"
	"strconv"
	"strings"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"
)

var ErrInvalidActiveFilter = errors.New("invalid is_active filter")

type TemplateRequest struct {
	Name             string                    `json:"name" binding:"required"`
	Description      string                    `json:"description"`
	IsActive         *bool                     `json:"is_active"`
	CalculationRules entities.CalculationRules `json:"calculation_rules"`
	Categories       []entities.Category       `json:"categories"`
}

// ToTemplate builds the template to create. Templates are active unless the
// request says otherwise.
func (r TemplateRequest) ToTemplate() entities.Template {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return entities.Template{
		Name:             r.Name,
		Description:      r.Description,
		Active:           active,
		CalculationRules: r.CalculationRules,
		Categories:       r.Categories,
	}
}

// TemplateUpdateRequest only changes the fields present in the body. An
// explicit categories list replaces the stored one.
type TemplateUpdateRequest struct {
	Name             *string                    `json:"name"`
	Description      *string                    `json:"description"`
	IsActive         *bool                      `json:"is_active"`
	CalculationRules *entities.CalculationRules `json:"calculation_rules"`
	Categories       []entities.Category        `json:"categories"`
}

func (r TemplateUpdateRequest) ToInput() usecase.TemplateUpdateInput {
	return usecase.TemplateUpdateInput{
		Name:             r.Name,
		Description:      r.Description,
		Active:           r.IsActive,
		CalculationRules: r.CalculationRules,
		Categories:       r.Categories,
	}
}

type TemplateListQuery struct {
	Search   string `form:"search"`
	IsActive string `form:"is_active"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (q TemplateListQuery) ToFilter() (entities.TemplateFilter, error) {
	filter := entities.TemplateFilter{Search: q.Search, Page: q.Page, Limit: q.Limit}
	if v := strings.TrimSpace(q.IsActive); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return entities.TemplateFilter{}, ErrInvalidActiveFilter
		}
		filter.Active = &active
	}
	return filter, nil
}
