package interfaces

import (
	"context"

	"orcamentos/internal/domain/entities"
)

//go:generate mockgen -source=budget_repository_interface.go -destination=mocks/mock_budget_repository_interface.go

// IBudgetRepository persists budgets together with their items.
//
// A budget and its items are always written atomically: CreateWithItems,
// Update with replaceItems and Delete either apply every row or none.
// Update without replaceItems leaves stored items untouched. GetByID returns
// a zero Budget when the id does not exist for the company.
type IBudgetRepository interface {
	CreateWithItems(ctx context.Context, b entities.Budget) (entities.Budget, error)
	GetByID(ctx context.Context, companyID, id string) (entities.Budget, error)
	// List returns one page of matches, newest first, and the total match
	// count. Listed budgets carry no items.
	List(ctx context.Context, companyID string, filter entities.BudgetFilter) ([]entities.Budget, int, error)
	Update(ctx context.Context, b entities.Budget, replaceItems bool) (entities.Budget, error)
	Delete(ctx context.Context, companyID, id string) error
}
