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

const templateColumns = `id, company_id, name, description, is_active, calculation_rules, categories, created_at, updated_at`

type TemplateRepository struct {
	db *DB
}

var _ interfaces.ITemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, t entities.Template) (entities.Template, error) {
	rules, categories, err := encodeTemplate(t)
	if err != nil {
		return entities.Template{}, err
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.CompanyID, t.Name, t.Description, t.Active, rules, categories, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return entities.Template{}, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, companyID, id string) (entities.Template, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+templateColumns+` FROM templates WHERE id = ? AND company_id = ?`), id, companyID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Template{}, nil
	}
	return t, err
}

func (r *TemplateRepository) List(ctx context.Context, companyID string, filter entities.TemplateFilter) ([]entities.Template, int, error) {
	where := []string{"company_id = ?"}
	args := []any{companyID}
	if filter.Search != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, likePattern(filter.Search))
	}
	if filter.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.Active)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM templates WHERE `+cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	query := `SELECT ` + templateColumns + ` FROM templates WHERE ` + cond + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, (max(filter.Page, 1)-1)*filter.Limit)
	}
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	out := []entities.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *TemplateRepository) Update(ctx context.Context, t entities.Template) (entities.Template, error) {
	rules, categories, err := encodeTemplate(t)
	if err != nil {
		return entities.Template{}, err
	}
	res, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE templates
		SET name = ?, description = ?, is_active = ?, calculation_rules = ?, categories = ?, updated_at = ?
		WHERE id = ? AND company_id = ?`),
		t.Name, t.Description, t.Active, rules, categories, formatTime(t.UpdatedAt), t.ID, t.CompanyID)
	if err != nil {
		return entities.Template{}, fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.Template{}, nil
	}
	return t, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, companyID, id string) error {
	if _, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM templates WHERE id = ? AND company_id = ?`), id, companyID); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (entities.Template, error) {
	var (
		t                    entities.Template
		rules, categories    string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Description, &t.Active, &rules, &categories, &createdAt, &updatedAt); err != nil {
		return entities.Template{}, err
	}
	if err := json.Unmarshal([]byte(rules), &t.CalculationRules); err != nil {
		return entities.Template{}, fmt.Errorf("decode calculation rules: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
		return entities.Template{}, fmt.Errorf("decode categories: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func encodeTemplate(t entities.Template) (string, string, error) {
	rules, err := json.Marshal(t.CalculationRules)
	if err != nil {
		return "", "", fmt.Errorf("encode calculation rules: %w", err)
	}
	categories, err := json.Marshal(t.Categories)
	if err != nil {
		return "", "", fmt.Errorf("encode categories: %w", err)
	}
	return string(rules), string(categories), nil
}
