package entities

import (
	"encoding/json"
	"time"
)

// BudgetStatus represents the lifecycle of a budget (orçamento).
//
//	draft ──► sent ──► approved
//	  ▲        │  └──► rejected
//	  └────────┴────── (approved/rejected/sent may return to draft)
type BudgetStatus string

const (
	BudgetStatusDraft    BudgetStatus = "draft"
	BudgetStatusSent     BudgetStatus = "sent"
	BudgetStatusApproved BudgetStatus = "approved"
	BudgetStatusRejected BudgetStatus = "rejected"
)

var budgetTransitions = map[BudgetStatus][]BudgetStatus{
	BudgetStatusDraft:    {BudgetStatusSent},
	BudgetStatusSent:     {BudgetStatusApproved, BudgetStatusRejected, BudgetStatusDraft},
	BudgetStatusApproved: {BudgetStatusDraft},
	BudgetStatusRejected: {BudgetStatusDraft},
}

func (s BudgetStatus) Valid() bool {
	_, ok := budgetTransitions[s]
	return ok
}

func (s BudgetStatus) CanTransitionTo(next BudgetStatus) bool {
	for _, allowed := range budgetTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BudgetItem is one filled category instance of a budget. Amount is the
// strategy-adjusted amount computed for the item.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (budget_id-index): budget_id
type BudgetItem struct {
	ID          string         `json:"id"`
	BudgetID    string         `json:"budget_id"`
	CategoryID  string         `json:"category_id"`
	FieldValues map[string]any `json:"field_values"`
	Amount      float64        `json:"amount"`
	Order       int            `json:"order"`
}

// Budget is a priced instance of a template.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (company_id-index): company_id
//
// Metadata keeps the calculation metadata of the last calculation as JSON, so
// the audit trail survives strategy changes.
type Budget struct {
	ID          string             `json:"id"`
	CompanyID   string             `json:"company_id"`
	TemplateID  string             `json:"template_id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Status      BudgetStatus       `json:"status"`
	TotalAmount float64            `json:"total_amount"`
	Subtotals   map[string]float64 `json:"subtotals"`
	Metadata    json.RawMessage    `json:"metadata,omitempty"`
	Version     int                `json:"version"`
	Items       []BudgetItem       `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type BudgetFilter struct {
	Search     string
	Status     BudgetStatus
	TemplateID string
	Page       int
	// Limit 0 returns every match.
	Limit int
}

type BudgetStats struct {
	Total         int                  `json:"total"`
	ByStatus      map[BudgetStatus]int `json:"by_status"`
	TotalValue    float64              `json:"total_value"`
	ApprovedValue float64              `json:"approved_value"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func NewPage[T any](data []T, total, page, limit int) Page[T] {
	if data == nil {
		data = []T{}
	}
	pages := 1
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
