package request

import (
	"strings"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"
)

type BudgetItemRequest struct {
	CategoryID  string         `json:"category_id" binding:"required"`
	FieldValues map[string]any `json:"field_values"`
	Order       int            `json:"order"`
}

type BudgetRequest struct {
	TemplateID  string              `json:"template_id" binding:"required"`
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Items       []BudgetItemRequest `json:"items" binding:"dive"`
}

func (r BudgetRequest) ToInput() usecase.BudgetInput {
	return usecase.BudgetInput{
		TemplateID:  r.TemplateID,
		Title:       r.Title,
		Description: r.Description,
		Items:       toItems(r.Items),
	}
}

// BudgetUpdateRequest only changes the fields present in the body. Sending
// items, even an empty list, replaces every stored item.
type BudgetUpdateRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *string             `json:"status"`
	Items       []BudgetItemRequest `json:"items" binding:"omitempty,dive"`
}

func (r BudgetUpdateRequest) ToInput() usecase.BudgetUpdateInput {
	in := usecase.BudgetUpdateInput{
		Title:        r.Title,
		Description:  r.Description,
		Items:        toItems(r.Items),
		ReplaceItems: r.Items != nil,
	}
	if r.Status != nil {
		status := entities.BudgetStatus(strings.TrimSpace(*r.Status))
		in.Status = &status
	}
	return in
}

type CalculateRequest struct {
	TemplateID string                 `json:"template_id" binding:"required"`
	Items      []BudgetItemRequest    `json:"items" binding:"dive"`
	Overrides  *calculation.Overrides `json:"overrides"`
}

func (r CalculateRequest) ToInput() usecase.CalculateInput {
	return usecase.CalculateInput{
		TemplateID: r.TemplateID,
		Items:      toItems(r.Items),
		Overrides:  r.Overrides,
	}
}

type ValidateRequest struct {
	TemplateID string              `json:"template_id" binding:"required"`
	Items      []BudgetItemRequest `json:"items" binding:"dive"`
}

func (r ValidateRequest) ToItems() []calculation.Item {
	return toItems(r.Items)
}

type BudgetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (r BudgetStatusRequest) ToStatus() entities.BudgetStatus {
	return entities.BudgetStatus(strings.ToLower(strings.TrimSpace(r.Status)))
}

type DuplicateBudgetRequest struct {
	Title string `json:"title"`
}

type BudgetListQuery struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	TemplateID string `form:"template_id"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

func (q BudgetListQuery) ToFilter() entities.BudgetFilter {
	return entities.BudgetFilter{
		Search:     q.Search,
		Status:     entities.BudgetStatus(strings.ToLower(strings.TrimSpace(q.Status))),
		TemplateID: strings.TrimSpace(q.TemplateID),
		Page:       q.Page,
		Limit:      q.Limit,
	}
}

func toItems(in []BudgetItemRequest) []calculation.Item {
	if in == nil {
		return nil
	}
	items := make([]calculation.Item, 0, len(in))
	for _, it := range in {
		values := calculation.FieldValues(it.FieldValues)
		if values == nil {
			values = calculation.FieldValues{}
		}
		items = append(items, calculation.Item{CategoryID: it.CategoryID, FieldValues: values, Order: it.Order})
	}
	return items
}
