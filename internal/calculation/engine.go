package calculation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"orcamentos/internal/domain/entities"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrCompanyNotFound  = errors.New("company not found")
	ErrValidationFailed = errors.New("budget validation failed")
)

// ValidationError carries the full validation result of a rejected
// calculation. errors.Is(err, ErrValidationFailed) holds for it.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(e.Result.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// CompanyReader loads the company whose settings price a calculation. A zero
// Company (empty ID) means not found.
type CompanyReader interface {
	GetByID(ctx context.Context, id string) (entities.Company, error)
}

type EngineOption func(*Engine)

// WithClock fixes the clock used for calculation dates.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

type CalculateOption func(*calculateOptions)

type calculateOptions struct {
	overrides *Overrides
}

// WithOverrides applies per-call currency and tax rate overrides on top of the
// company settings.
func WithOverrides(o Overrides) CalculateOption {
	return func(c *calculateOptions) { c.overrides = &o }
}

// Engine orchestrates a calculation: strategy resolution, company context,
// validation and pricing. It holds no per-call state.
type Engine struct {
	companies CompanyReader
	log       zerolog.Logger
	now       func() time.Time
}

func NewEngine(companies CompanyReader, log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{companies: companies, log: log, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate validates items against tpl and prices them with the template
// strategy and the settings of companyID. Validation failures return a
// *ValidationError and no result.
func (e *Engine) Calculate(ctx context.Context, tpl entities.Template, items []Item, companyID string, opts ...CalculateOption) (CalculationResult, error) {
	if tpl.ID == "" {
		return CalculationResult{}, ErrTemplateNotFound
	}
	var o calculateOptions
	for _, opt := range opts {
		opt(&o)
	}

	strategy := StrategyFor(ParseKind(tpl.CalculationRules.Strategy), e.now)

	company, err := e.companies.GetByID(ctx, companyID)
	if err != nil {
		return CalculationResult{}, fmt.Errorf("load company %s: %w", companyID, err)
	}
	if company.ID == "" {
		return CalculationResult{}, ErrCompanyNotFound
	}

	cctx, err := NewContext(company)
	if err != nil {
		return CalculationResult{}, err
	}
	if o.overrides != nil {
		if cctx, err = cctx.withOverrides(*o.overrides); err != nil {
			return CalculationResult{}, err
		}
	}

	validation := strategy.Validate(tpl, items)
	if !validation.Valid {
		e.log.Info().
			Str("company_id", companyID).
			Str("template_id", tpl.ID).
			Strs("errors", validation.Errors).
			Msg("[calculation][engine] validation failed")
		return CalculationResult{}, &ValidationError{Result: validation}
	}

	result := strategy.Calculate(tpl, items, cctx)
	result.Warnings = append(append([]string{}, validation.Warnings...), result.Warnings...)

	for _, w := range result.Warnings {
		e.log.Warn().
			Str("company_id", companyID).
			Str("template_id", tpl.ID).
			Str("strategy", string(strategy.Kind())).
			Msg("[calculation][engine] " + w)
	}
	e.log.Debug().
		Str("company_id", companyID).
		Str("template_id", tpl.ID).
		Str("strategy", string(strategy.Kind())).
		Float64("total", result.Total).
		Int("items", len(result.Items)).
		Msg("[calculation][engine] calculated")
	return result, nil
}

// Validate runs the template strategy validation only.
func (e *Engine) Validate(_ context.Context, tpl entities.Template, items []Item) (ValidationResult, error) {
	if tpl.ID == "" {
		return ValidationResult{}, ErrTemplateNotFound
	}
	return StrategyFor(ParseKind(tpl.CalculationRules.Strategy), e.now).Validate(tpl, items), nil
}

func (e *Engine) Strategies() []string {
	kinds := Kinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}
