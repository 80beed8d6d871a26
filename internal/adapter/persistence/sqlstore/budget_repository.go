package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

const budgetColumns = `id, company_id, template_id, title, description, status, total_amount, subtotals, metadata, version, created_at, updated_at`

// BudgetRepository stores budgets and their items; every write touching items
// runs in one transaction.
type BudgetRepository struct {
	db *DB
}

var _ interfaces.IBudgetRepository = (*BudgetRepository)(nil)

func NewBudgetRepository(db *DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) CreateWithItems(ctx context.Context, b entities.Budget) (entities.Budget, error) {
	subtotals, err := encodeSubtotals(b.Subtotals)
	if err != nil {
		return entities.Budget{}, err
	}
	err = r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.rebind(`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			b.ID, b.CompanyID, b.TemplateID, b.Title, b.Description, string(b.Status), moneyToString(b.TotalAmount),
			subtotals, string(b.Metadata), b.Version, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		return r.insertItems(ctx, tx, b.ID, b.Items)
	})
	if err != nil {
		return entities.Budget{}, err
	}
	return b, nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, companyID, id string) (entities.Budget, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND company_id = ?`), id, companyID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Budget{}, nil
	}
	if err != nil {
		return entities.Budget{}, err
	}
	if b.Items, err = r.items(ctx, r.db, id); err != nil {
		return entities.Budget{}, err
	}
	return b, nil
}

func (r *BudgetRepository) List(ctx context.Context, companyID string, filter entities.BudgetFilter) ([]entities.Budget, int, error) {
	where := []string{"company_id = ?"}
	args := []any{companyID}
	if filter.Search != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, likePattern(filter.Search))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.TemplateID != "" {
		where = append(where, "template_id = ?")
		args = append(args, filter.TemplateID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM budgets WHERE `+cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count budgets: %w", err)
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE ` + cond + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, (max(filter.Page, 1)-1)*filter.Limit)
	}
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	out := []entities.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *BudgetRepository) Update(ctx context.Context, b entities.Budget, replaceItems bool) (entities.Budget, error) {
	subtotals, err := encodeSubtotals(b.Subtotals)
	if err != nil {
		return entities.Budget{}, err
	}

	found := true
	err = r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.db.rebind(`UPDATE budgets
			SET title = ?, description = ?, status = ?, total_amount = ?, subtotals = ?, metadata = ?, version = ?, updated_at = ?
			WHERE id = ? AND company_id = ?`),
			b.Title, b.Description, string(b.Status), moneyToString(b.TotalAmount), subtotals, string(b.Metadata),
			b.Version, formatTime(b.UpdatedAt), b.ID, b.CompanyID)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			found = false
			return nil
		}

		if replaceItems {
			if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM budget_items WHERE budget_id = ?`), b.ID); err != nil {
				return fmt.Errorf("delete budget items: %w", err)
			}
			if err := r.insertItems(ctx, tx, b.ID, b.Items); err != nil {
				return err
			}
		}
		b.Items, err = r.items(ctx, tx, b.ID)
		return err
	})
	if err != nil {
		return entities.Budget{}, err
	}
	if !found {
		return entities.Budget{}, nil
	}
	return b, nil
}

func (r *BudgetRepository) Delete(ctx context.Context, companyID, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT company_id FROM budgets WHERE id = ?`), id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != companyID) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select budget: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM budget_items WHERE budget_id = ?`), id); err != nil {
			return fmt.Errorf("delete budget items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM budgets WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		return nil
	})
}

func (r *BudgetRepository) insertItems(ctx context.Context, q queryer, budgetID string, items []entities.BudgetItem) error {
	query := r.db.rebind(`INSERT INTO budget_items (id, budget_id, category_id, field_values, amount, item_order) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, it := range items {
		values, err := json.Marshal(it.FieldValues)
		if err != nil {
			return fmt.Errorf("encode field values: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, it.ID, budgetID, it.CategoryID, string(values), moneyToString(it.Amount), it.Order); err != nil {
			return fmt.Errorf("insert budget item: %w", err)
		}
	}
	return nil
}

func (r *BudgetRepository) items(ctx context.Context, q queryer, budgetID string) ([]entities.BudgetItem, error) {
	rows, err := q.QueryContext(ctx, r.db.rebind(`SELECT id, budget_id, category_id, field_values, amount, item_order
		FROM budget_items WHERE budget_id = ? ORDER BY item_order, id`), budgetID)
	if err != nil {
		return nil, fmt.Errorf("select budget items: %w", err)
	}
	defer rows.Close()

	out := []entities.BudgetItem{}
	for rows.Next() {
		var (
			it             entities.BudgetItem
			values, amount string
		)
		if err := rows.Scan(&it.ID, &it.BudgetID, &it.CategoryID, &values, &amount, &it.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(values), &it.FieldValues); err != nil {
			return nil, fmt.Errorf("decode field values: %w", err)
		}
		it.Amount = parseMoney(amount)
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanBudget(row rowScanner) (entities.Budget, error) {
	var (
		b                              entities.Budget
		status, total, subtotals, meta string
		createdAt, updatedAt           string
	)
	if err := row.Scan(&b.ID, &b.CompanyID, &b.TemplateID, &b.Title, &b.Description, &status, &total,
		&subtotals, &meta, &b.Version, &createdAt, &updatedAt); err != nil {
		return entities.Budget{}, err
	}
	raw := map[string]string{}
	if err := json.Unmarshal([]byte(subtotals), &raw); err != nil {
		return entities.Budget{}, fmt.Errorf("decode subtotals: %w", err)
	}
	b.Subtotals = make(map[string]float64, len(raw))
	for name, v := range raw {
		b.Subtotals[name] = parseMoney(v)
	}
	if meta != "" {
		b.Metadata = json.RawMessage(meta)
	}
	b.Status = entities.BudgetStatus(status)
	b.TotalAmount = parseMoney(total)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// encodeSubtotals stores subtotals as fixed two-decimal strings.
func encodeSubtotals(subtotals map[string]float64) (string, error) {
	raw := make(map[string]string, len(subtotals))
	for name, v := range subtotals {
		raw[name] = moneyToString(v)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode subtotals: %w", err)
	}
	return string(b), nil
}
