package interfaces

import (
	"context"

	"orcamentos/internal/domain/entities"
)

//go:generate mockgen -source=budget_payment_repository_interface.go -destination=mocks/mock_budget_payment_repository_interface.go

// IBudgetPaymentRepository persists payments made against budgets.
type IBudgetPaymentRepository interface {
	Create(ctx context.Context, p entities.BudgetPayment) (entities.BudgetPayment, error)
	GetByID(ctx context.Context, id string) (entities.BudgetPayment, error)
	ListByBudgetID(ctx context.Context, budgetID string) ([]entities.BudgetPayment, error)
}
