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

const companyColumns = `id, name, email, document, settings, created_at, updated_at`

type CompanyRepository struct {
	db *DB
}

var _ interfaces.ICompanyRepository = (*CompanyRepository)(nil)

func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, c entities.Company) (entities.Company, error) {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return entities.Company{}, fmt.Errorf("encode company settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Email, c.Document, string(settings), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return entities.Company{}, fmt.Errorf("insert company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (entities.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
}

func (r *CompanyRepository) GetByEmail(ctx context.Context, email string) (entities.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE email = ?`, email)
}

func (r *CompanyRepository) Update(ctx context.Context, c entities.Company) (entities.Company, error) {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return entities.Company{}, fmt.Errorf("encode company settings: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE companies SET name = ?, email = ?, document = ?, settings = ?, updated_at = ? WHERE id = ?`),
		c.Name, c.Email, c.Document, string(settings), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return entities.Company{}, fmt.Errorf("update company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.Company{}, nil
	}
	return c, nil
}

func (r *CompanyRepository) getOne(ctx context.Context, query string, arg string) (entities.Company, error) {
	var (
		c                    entities.Company
		settings             string
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, r.db.rebind(query), arg).
		Scan(&c.ID, &c.Name, &c.Email, &c.Document, &settings, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Company{}, nil
	}
	if err != nil {
		return entities.Company{}, fmt.Errorf("select company: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &c.Settings); err != nil {
		return entities.Company{}, fmt.Errorf("decode company settings: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}
