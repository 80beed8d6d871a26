package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

var (
	ErrCompanyNotFound      = calculation.ErrCompanyNotFound
	ErrInvalidSettings      = calculation.ErrInvalidSettings
	ErrCompanyAlreadyExists = errors.New("company already exists")
	ErrInvalidCompanyID     = errors.New("invalid company id")
	ErrInvalidCompanyInput  = errors.New("invalid company input")
)

type CompanyInput struct {
	Name     string
	Email    string
	Document string
	Settings entities.CompanySettings
}

// ICompanyUseCase manages the companies that own templates and budgets.
type ICompanyUseCase interface {
	Create(ctx context.Context, in CompanyInput) (entities.Company, error)
	GetByID(ctx context.Context, id string) (entities.Company, error)
	GetByEmail(ctx context.Context, email string) (entities.Company, error)
	UpdateSettings(ctx context.Context, id string, patch entities.CompanySettings) (entities.Company, error)
}

type CompanyUseCase struct {
	repo interfaces.ICompanyRepository
	now  func() time.Time
}

var _ ICompanyUseCase = (*CompanyUseCase)(nil)

func NewCompanyUseCase(repo interfaces.ICompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, now: time.Now}
}

func (u *CompanyUseCase) Create(ctx context.Context, in CompanyInput) (entities.Company, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || !strings.Contains(email, "@") {
		return entities.Company{}, ErrInvalidCompanyInput
	}

	now := u.now().UTC()
	c := entities.Company{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Document:  strings.TrimSpace(in.Document),
		Settings:  in.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := calculation.NewContext(c); err != nil {
		return entities.Company{}, err
	}

	if existing, err := u.repo.GetByEmail(ctx, email); err != nil {
		return entities.Company{}, err
	} else if existing.ID != "" {
		return entities.Company{}, ErrCompanyAlreadyExists
	}

	created, err := u.repo.Create(ctx, c)
	if err != nil {
		return entities.Company{}, fmt.Errorf("create company: %w", err)
	}
	log.Info().Str("company_id", created.ID).Msg("[company][usecase] created")
	return created, nil
}

func (u *CompanyUseCase) GetByID(ctx context.Context, id string) (entities.Company, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Company{}, ErrInvalidCompanyID
	}

	c, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.Company{}, err
	}
	if c.ID == "" {
		return entities.Company{}, ErrCompanyNotFound
	}
	return c, nil
}

func (u *CompanyUseCase) GetByEmail(ctx context.Context, email string) (entities.Company, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return entities.Company{}, ErrInvalidCompanyInput
	}

	c, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return entities.Company{}, err
	}
	if c.ID == "" {
		return entities.Company{}, ErrCompanyNotFound
	}
	return c, nil
}

// UpdateSettings merges patch into the stored settings; unset fields keep
// their stored value.
func (u *CompanyUseCase) UpdateSettings(ctx context.Context, id string, patch entities.CompanySettings) (entities.Company, error) {
	c, err := u.GetByID(ctx, id)
	if err != nil {
		return entities.Company{}, err
	}

	c.Settings = c.Settings.Merge(patch)
	if _, err := calculation.NewContext(c); err != nil {
		return entities.Company{}, err
	}
	c.UpdatedAt = u.now().UTC()

	updated, err := u.repo.Update(ctx, c)
	if err != nil {
		return entities.Company{}, err
	}
	if updated.ID == "" {
		return entities.Company{}, ErrCompanyNotFound
	}
	log.Info().Str("company_id", updated.ID).Msg("[company][usecase] settings updated")
	return updated, nil
}
