package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

var (
	ErrTemplateNotFound  = calculation.ErrTemplateNotFound
	ErrInvalidTemplate   = calculation.ErrInvalidTemplate
	ErrInvalidTemplateID = errors.New("invalid template id")
)

// TemplateUpdateInput changes the fields that are set. A nil Categories keeps
// the stored categories; a non-nil one replaces them.
type TemplateUpdateInput struct {
	Name             *string
	Description      *string
	Active           *bool
	CalculationRules *entities.CalculationRules
	Categories       []entities.Category
}

// ITemplateUseCase manages the budget templates of a company.
type ITemplateUseCase interface {
	Create(ctx context.Context, companyID string, tpl entities.Template) (entities.Template, error)
	GetByID(ctx context.Context, companyID, id string) (entities.Template, error)
	List(ctx context.Context, companyID string, filter entities.TemplateFilter) (entities.Page[entities.Template], error)
	Update(ctx context.Context, companyID, id string, in TemplateUpdateInput) (entities.Template, error)
	Delete(ctx context.Context, companyID, id string) error
}

type TemplateUseCase struct {
	repo      interfaces.ITemplateRepository
	companies interfaces.ICompanyRepository
	now       func() time.Time
}

var _ ITemplateUseCase = (*TemplateUseCase)(nil)

func NewTemplateUseCase(repo interfaces.ITemplateRepository, companies interfaces.ICompanyRepository) *TemplateUseCase {
	return &TemplateUseCase{repo: repo, companies: companies, now: time.Now}
}

func (u *TemplateUseCase) Create(ctx context.Context, companyID string, tpl entities.Template) (entities.Template, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.Template{}, ErrInvalidCompanyID
	}
	if company, err := u.companies.GetByID(ctx, companyID); err != nil {
		return entities.Template{}, err
	} else if company.ID == "" {
		return entities.Template{}, ErrCompanyNotFound
	}

	now := u.now().UTC()
	tpl.ID = uuid.NewString()
	tpl.CompanyID = companyID
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.CalculationRules.Strategy = string(calculation.ParseKind(tpl.CalculationRules.Strategy))
	tpl.Categories = normalizeCategories(tpl.Categories)
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	if err := calculation.CheckTemplate(tpl); err != nil {
		return entities.Template{}, err
	}

	created, err := u.repo.Create(ctx, tpl)
	if err != nil {
		return entities.Template{}, err
	}
	log.Info().
		Str("company_id", companyID).
		Str("template_id", created.ID).
		Str("strategy", created.CalculationRules.Strategy).
		Msg("[template][usecase] created")
	return created, nil
}

func (u *TemplateUseCase) GetByID(ctx context.Context, companyID, id string) (entities.Template, error) {
	companyID = strings.TrimSpace(companyID)
	id = strings.TrimSpace(id)
	if companyID == "" {
		return entities.Template{}, ErrInvalidCompanyID
	}
	if id == "" {
		return entities.Template{}, ErrInvalidTemplateID
	}

	tpl, err := u.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Template{}, err
	}
	if tpl.ID == "" {
		return entities.Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

func (u *TemplateUseCase) List(ctx context.Context, companyID string, filter entities.TemplateFilter) (entities.Page[entities.Template], error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.Page[entities.Template]{}, ErrInvalidCompanyID
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	list, total, err := u.repo.List(ctx, companyID, filter)
	if err != nil {
		return entities.Page[entities.Template]{}, err
	}
	return entities.NewPage(list, total, filter.Page, filter.Limit), nil
}

func (u *TemplateUseCase) Update(ctx context.Context, companyID, id string, in TemplateUpdateInput) (entities.Template, error) {
	tpl, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Template{}, err
	}

	if in.Name != nil {
		tpl.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		tpl.Description = *in.Description
	}
	if in.Active != nil {
		tpl.Active = *in.Active
	}
	if in.CalculationRules != nil {
		tpl.CalculationRules = *in.CalculationRules
		tpl.CalculationRules.Strategy = string(calculation.ParseKind(in.CalculationRules.Strategy))
	}
	if in.Categories != nil {
		tpl.Categories = normalizeCategories(in.Categories)
	}
	if err := calculation.CheckTemplate(tpl); err != nil {
		return entities.Template{}, err
	}
	tpl.UpdatedAt = u.now().UTC()

	updated, err := u.repo.Update(ctx, tpl)
	if err != nil {
		return entities.Template{}, err
	}
	if updated.ID == "" {
		return entities.Template{}, ErrTemplateNotFound
	}
	log.Info().Str("company_id", tpl.CompanyID).Str("template_id", tpl.ID).Msg("[template][usecase] updated")
	return updated, nil
}

func (u *TemplateUseCase) Delete(ctx context.Context, companyID, id string) error {
	tpl, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, tpl.CompanyID, tpl.ID); err != nil {
		return err
	}
	log.Info().Str("company_id", tpl.CompanyID).Str("template_id", tpl.ID).Msg("[template][usecase] deleted")
	return nil
}

// normalizeCategories fills missing ids and positional orders.
func normalizeCategories(in []entities.Category) []entities.Category {
	out := make([]entities.Category, len(in))
	for i, c := range in {
		if strings.TrimSpace(c.ID) == "" {
			c.ID = uuid.NewString()
		}
		c.Name = strings.TrimSpace(c.Name)
		if c.Order == 0 {
			c.Order = i + 1
		}
		fields := make([]entities.Field, len(c.Fields))
		for j, f := range c.Fields {
			if strings.TrimSpace(f.ID) == "" {
				f.ID = uuid.NewString()
			}
			f.Label = strings.TrimSpace(f.Label)
			if f.Order == 0 {
				f.Order = j + 1
			}
			fields[j] = f
		}
		c.Fields = fields
		out[i] = c
	}
	return out
}
