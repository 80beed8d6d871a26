package interfaces

import (
	"context"

	"orcamentos/internal/domain/entities"
)

//go:generate mockgen -source=company_repository_interface.go -destination=mocks/mock_company_repository_interface.go

// ICompanyRepository persists companies. Lookups return a zero Company (empty
// ID) when nothing matches.
type ICompanyRepository interface {
	Create(ctx context.Context, c entities.Company) (entities.Company, error)
	GetByID(ctx context.Context, id string) (entities.Company, error)
	GetByEmail(ctx context.Context, email string) (entities.Company, error)
	Update(ctx context.Context, c entities.Company) (entities.Company, error)
}
