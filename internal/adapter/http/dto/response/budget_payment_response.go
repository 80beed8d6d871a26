package response

import (
	"time"

	"orcamentos/internal/domain/entities"
)

type BudgetPaymentResponse struct {
	PaymentID   string    `json:"payment_id"`
	ID          string    `json:"id"`
	BudgetID    string    `json:"budget_id"`
	Amount      float64   `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	Status      string    `json:"status"`

	MPPayloadRaw string                 `json:"mp_payload_raw,omitempty"`
	MPPayload    map[string]interface{} `json:"mp_payload,omitempty"`
}

func FromBudgetPayment(p entities.BudgetPayment) BudgetPaymentResponse {
	return BudgetPaymentResponse{
		PaymentID:    p.ID,
		ID:           p.ID,
		BudgetID:     p.BudgetID,
		Amount:       p.Amount,
		PaymentDate:  p.Date,
		Status:       string(p.Status),
		MPPayloadRaw: string(p.MPPayloadRaw),
		MPPayload:    p.MPPayload,
	}
}

func FromBudgetPayments(list []entities.BudgetPayment) []BudgetPaymentResponse {
	out := make([]BudgetPaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, FromBudgetPayment(p))
	}
	return out
}
