package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

const budgetPaymentColumns = `id, budget_id, company_id, amount, date, status, mp_payload, mp_payload_raw`

type BudgetPaymentRepository struct {
	db *DB
}

var _ interfaces.IBudgetPaymentRepository = (*BudgetPaymentRepository)(nil)

func NewBudgetPaymentRepository(db *DB) *BudgetPaymentRepository {
	return &BudgetPaymentRepository{db: db}
}

func (r *BudgetPaymentRepository) Create(ctx context.Context, p entities.BudgetPayment) (entities.BudgetPayment, error) {
	var payload []byte
	if p.MPPayload != nil {
		var err error
		if payload, err = json.Marshal(p.MPPayload); err != nil {
			return entities.BudgetPayment{}, fmt.Errorf("encode payment payload: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(`INSERT INTO budget_payments (`+budgetPaymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.BudgetID, p.CompanyID, moneyToString(p.Amount), formatTime(p.Date), string(p.Status), string(payload), string(p.MPPayloadRaw))
	if err != nil {
		return entities.BudgetPayment{}, fmt.Errorf("insert budget payment: %w", err)
	}
	return p, nil
}

func (r *BudgetPaymentRepository) GetByID(ctx context.Context, id string) (entities.BudgetPayment, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+budgetPaymentColumns+` FROM budget_payments WHERE id = ?`), id)
	p, err := scanBudgetPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.BudgetPayment{}, nil
	}
	return p, err
}

func (r *BudgetPaymentRepository) ListByBudgetID(ctx context.Context, budgetID string) ([]entities.BudgetPayment, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`SELECT `+budgetPaymentColumns+` FROM budget_payments WHERE budget_id = ? ORDER BY date, id`), budgetID)
	if err != nil {
		return nil, fmt.Errorf("select budget payments: %w", err)
	}
	defer rows.Close()

	out := []entities.BudgetPayment{}
	for rows.Next() {
		p, err := scanBudgetPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanBudgetPayment(row rowScanner) (entities.BudgetPayment, error) {
	var (
		p                    entities.BudgetPayment
		amount, date, status string
		payload, raw         string
	)
	if err := row.Scan(&p.ID, &p.BudgetID, &p.CompanyID, &amount, &date, &status, &payload, &raw); err != nil {
		return entities.BudgetPayment{}, err
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &p.MPPayload); err != nil {
			return entities.BudgetPayment{}, fmt.Errorf("decode payment payload: %w", err)
		}
	}
	if raw != "" {
		p.MPPayloadRaw = json.RawMessage(raw)
	}
	p.Amount = parseMoney(amount)
	p.Date = parseTime(date)
	p.Status = entities.PaymentStatus(status)
	return p, nil
}
