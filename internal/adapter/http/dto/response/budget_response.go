package response

import (
	"encoding/json"
	"time"

	"orcamentos/internal/domain/entities"
)

type BudgetItemResponse struct {
	ID          string         `json:"id"`
	CategoryID  string         `json:"category_id"`
	FieldValues map[string]any `json:"field_values"`
	Amount      float64        `json:"amount"`
	Order       int            `json:"order"`
}

type BudgetResponse struct {
	ID          string               `json:"id"`
	CompanyID   string               `json:"company_id"`
	TemplateID  string               `json:"template_id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      string               `json:"status"`
	TotalAmount float64              `json:"total_amount"`
	Subtotals   map[string]float64   `json:"subtotals"`
	Metadata    json.RawMessage      `json:"metadata,omitempty"`
	Version     int                  `json:"version"`
	Items       []BudgetItemResponse `json:"items"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func FromBudget(b entities.Budget) BudgetResponse {
	items := make([]BudgetItemResponse, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, BudgetItemResponse{
			ID:          it.ID,
			CategoryID:  it.CategoryID,
			FieldValues: it.FieldValues,
			Amount:      it.Amount,
			Order:       it.Order,
		})
	}
	subtotals := b.Subtotals
	if subtotals == nil {
		subtotals = map[string]float64{}
	}
	var metadata json.RawMessage
	if json.Valid(b.Metadata) {
		metadata = b.Metadata
	}
	return BudgetResponse{
		ID:          b.ID,
		CompanyID:   b.CompanyID,
		TemplateID:  b.TemplateID,
		Title:       b.Title,
		Description: b.Description,
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount,
		Subtotals:   subtotals,
		Metadata:    metadata,
		Version:     b.Version,
		Items:       items,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}
