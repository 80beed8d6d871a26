package interfaces

import (
	"context"

	"orcamentos/internal/domain/entities"
)

//go:generate mockgen -source=template_repository_interface.go -destination=mocks/mock_template_repository_interface.go

// ITemplateRepository persists templates with their categories and fields.
// Templates are always scoped by company; a template of another company is
// reported as not found (zero Template).
type ITemplateRepository interface {
	Create(ctx context.Context, t entities.Template) (entities.Template, error)
	GetByID(ctx context.Context, companyID, id string) (entities.Template, error)
	// List returns one page of matches, newest first, and the total match count.
	List(ctx context.Context, companyID string, filter entities.TemplateFilter) ([]entities.Template, int, error)
	Update(ctx context.Context, t entities.Template) (entities.Template, error)
	Delete(ctx context.Context, companyID, id string) error
}
