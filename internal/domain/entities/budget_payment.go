package entities

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the payment processing outcome.
type PaymentStatus string

const (
	PaymentStatusPendente PaymentStatus = "pendente"
	PaymentStatusAprovado PaymentStatus = "aprovado"
	PaymentStatusNegado   PaymentStatus = "negado"
)

// BudgetPayment is a Mercado Pago payment made against an approved budget.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (budget_id-index): budget_id
//
// MPPayloadRaw keeps the Mercado Pago response for audit; MPPayload is the
// parsed form.
type BudgetPayment struct {
	ID        string        `json:"id"`
	BudgetID  string        `json:"budget_id"`
	CompanyID string        `json:"company_id"`
	Amount    float64       `json:"amount"`
	Date      time.Time     `json:"date"`
	Status    PaymentStatus `json:"status"`

	MPPayloadRaw json.RawMessage        `json:"mp_payload_raw,omitempty"`
	MPPayload    map[string]interface{} `json:"mp_payload,omitempty"`
}
