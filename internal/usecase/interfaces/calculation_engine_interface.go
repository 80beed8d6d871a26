package interfaces

import (
	"context"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
)

// ICalculationEngine prices budget items against a template.
type ICalculationEngine interface {
	Calculate(ctx context.Context, tpl entities.Template, items []calculation.Item, companyID string, opts ...calculation.CalculateOption) (calculation.CalculationResult, error)
	Validate(ctx context.Context, tpl entities.Template, items []calculation.Item) (calculation.ValidationResult, error)
	Strategies() []string
}

var _ ICalculationEngine = (*calculation.Engine)(nil)
