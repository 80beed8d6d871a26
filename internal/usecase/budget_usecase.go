package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

var (
	ErrBudgetNotFound          = errors.New("budget not found")
	ErrInvalidBudgetID         = errors.New("invalid budget id")
	ErrInvalidBudgetTitle      = errors.New("invalid budget title")
	ErrInvalidBudgetStatus     = errors.New("invalid budget status")
	ErrTemplateInactive        = errors.New("template is inactive")
	ErrBudgetNotEditable       = errors.New("only draft budgets can change items")
	ErrBudgetNotDeletable      = errors.New("only draft budgets can be deleted")
	ErrInvalidStatusTransition = errors.New("invalid budget status transition")
	ErrValidationFailed        = calculation.ErrValidationFailed
)

const (
	minTitleLen     = 3
	maxTitleLen     = 255
	duplicateSuffix = " - Cópia"
)

type BudgetInput struct {
	TemplateID  string
	Title       string
	Description string
	Items       []calculation.Item
}

// BudgetUpdateInput changes the fields that are set. Items are only applied
// when ReplaceItems is true.
type BudgetUpdateInput struct {
	Title        *string
	Description  *string
	Status       *entities.BudgetStatus
	Items        []calculation.Item
	ReplaceItems bool
}

type CalculateInput struct {
	TemplateID string
	Items      []calculation.Item
	Overrides  *calculation.Overrides
}

// IBudgetUseCase exposes budget (orçamento) operations.
type IBudgetUseCase interface {
	Create(ctx context.Context, companyID string, in BudgetInput) (entities.Budget, error)
	List(ctx context.Context, companyID string, filter entities.BudgetFilter) (entities.Page[entities.Budget], error)
	GetByID(ctx context.Context, companyID, id string) (entities.Budget, error)
	Update(ctx context.Context, companyID, id string, in BudgetUpdateInput) (entities.Budget, error)
	UpdateStatus(ctx context.Context, companyID, id string, status entities.BudgetStatus) (entities.Budget, error)
	Delete(ctx context.Context, companyID, id string) error
	Duplicate(ctx context.Context, companyID, id, title string) (entities.Budget, error)
	Calculate(ctx context.Context, companyID string, in CalculateInput) (calculation.CalculationResult, error)
	Validate(ctx context.Context, companyID, templateID string, items []calculation.Item) (calculation.ValidationResult, error)
	Stats(ctx context.Context, companyID string) (entities.BudgetStats, error)
	Strategies() []string
}

type BudgetUseCase struct {
	repo      interfaces.IBudgetRepository
	templates interfaces.ITemplateRepository
	engine    interfaces.ICalculationEngine
	now       func() time.Time
}

var _ IBudgetUseCase = (*BudgetUseCase)(nil)

func NewBudgetUseCase(repo interfaces.IBudgetRepository, templates interfaces.ITemplateRepository, engine interfaces.ICalculationEngine) *BudgetUseCase {
	return &BudgetUseCase{repo: repo, templates: templates, engine: engine, now: time.Now}
}

// budgetMetadata is the calculation audit trail stored with a budget.
type budgetMetadata struct {
	calculation.Metadata
	Warnings []string `json:"warnings,omitempty"`
}

func (u *BudgetUseCase) Create(ctx context.Context, companyID string, in BudgetInput) (entities.Budget, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.Budget{}, ErrInvalidCompanyID
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return entities.Budget{}, err
	}

	tpl, err := u.loadTemplate(ctx, companyID, in.TemplateID)
	if err != nil {
		return entities.Budget{}, err
	}
	if !tpl.Active {
		return entities.Budget{}, ErrTemplateInactive
	}

	result, err := u.engine.Calculate(ctx, tpl, numberItems(in.Items), companyID)
	if err != nil {
		return entities.Budget{}, err
	}

	now := u.now().UTC()
	b := entities.Budget{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		TemplateID:  tpl.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      entities.BudgetStatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := applyResult(&b, result); err != nil {
		return entities.Budget{}, err
	}

	created, err := u.repo.CreateWithItems(ctx, b)
	if err != nil {
		return entities.Budget{}, err
	}
	log.Info().
		Str("company_id", companyID).
		Str("budget_id", created.ID).
		Float64("total_amount", created.TotalAmount).
		Int("items", len(created.Items)).
		Msg("[budget][usecase] created")
	return created, nil
}

func (u *BudgetUseCase) List(ctx context.Context, companyID string, filter entities.BudgetFilter) (entities.Page[entities.Budget], error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.Page[entities.Budget]{}, ErrInvalidCompanyID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return entities.Page[entities.Budget]{}, ErrInvalidBudgetStatus
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.TemplateID = strings.TrimSpace(filter.TemplateID)
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	list, total, err := u.repo.List(ctx, companyID, filter)
	if err != nil {
		return entities.Page[entities.Budget]{}, err
	}
	return entities.NewPage(list, total, filter.Page, filter.Limit), nil
}

func (u *BudgetUseCase) GetByID(ctx context.Context, companyID, id string) (entities.Budget, error) {
	companyID = strings.TrimSpace(companyID)
	id = strings.TrimSpace(id)
	if companyID == "" {
		return entities.Budget{}, ErrInvalidCompanyID
	}
	if id == "" {
		return entities.Budget{}, ErrInvalidBudgetID
	}

	b, err := u.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Budget{}, err
	}
	if b.ID == "" {
		return entities.Budget{}, ErrBudgetNotFound
	}
	return b, nil
}

// Update applies title, description, items and status changes. Items can only
// change while the budget is a draft; they are recalculated and replace the
// stored items atomically.
func (u *BudgetUseCase) Update(ctx context.Context, companyID, id string, in BudgetUpdateInput) (entities.Budget, error) {
	b, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Budget{}, err
	}

	if in.Title != nil {
		if b.Title, err = normalizeTitle(*in.Title); err != nil {
			return entities.Budget{}, err
		}
	}
	if in.Description != nil {
		b.Description = strings.TrimSpace(*in.Description)
	}

	if in.ReplaceItems {
		if b.Status != entities.BudgetStatusDraft {
			return entities.Budget{}, ErrBudgetNotEditable
		}
		tpl, err := u.loadTemplate(ctx, b.CompanyID, b.TemplateID)
		if err != nil {
			return entities.Budget{}, err
		}
		result, err := u.engine.Calculate(ctx, tpl, numberItems(in.Items), b.CompanyID)
		if err != nil {
			return entities.Budget{}, err
		}
		if err := applyResult(&b, result); err != nil {
			return entities.Budget{}, err
		}
		b.Version++
	}

	if in.Status != nil && *in.Status != b.Status {
		if err := checkTransition(b.Status, *in.Status); err != nil {
			return entities.Budget{}, err
		}
		b.Status = *in.Status
	}
	b.UpdatedAt = u.now().UTC()

	updated, err := u.repo.Update(ctx, b, in.ReplaceItems)
	if err != nil {
		return entities.Budget{}, err
	}
	if updated.ID == "" {
		return entities.Budget{}, ErrBudgetNotFound
	}
	log.Info().
		Str("company_id", b.CompanyID).
		Str("budget_id", b.ID).
		Bool("items_replaced", in.ReplaceItems).
		Int("version", updated.Version).
		Msg("[budget][usecase] updated")
	return updated, nil
}

func (u *BudgetUseCase) UpdateStatus(ctx context.Context, companyID, id string, status entities.BudgetStatus) (entities.Budget, error) {
	b, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Budget{}, err
	}
	if err := checkTransition(b.Status, status); err != nil {
		log.Info().
			Str("budget_id", b.ID).
			Str("from", string(b.Status)).
			Str("to", string(status)).
			Msg("[budget][usecase] status transition rejected")
		return entities.Budget{}, err
	}

	from := b.Status
	b.Status = status
	b.UpdatedAt = u.now().UTC()

	updated, err := u.repo.Update(ctx, b, false)
	if err != nil {
		return entities.Budget{}, err
	}
	if updated.ID == "" {
		return entities.Budget{}, ErrBudgetNotFound
	}
	log.Info().
		Str("budget_id", b.ID).
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("[budget][usecase] status changed")
	return updated, nil
}

func (u *BudgetUseCase) Delete(ctx context.Context, companyID, id string) error {
	b, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return err
	}
	if b.Status != entities.BudgetStatusDraft {
		return ErrBudgetNotDeletable
	}
	if err := u.repo.Delete(ctx, b.CompanyID, b.ID); err != nil {
		return err
	}
	log.Info().Str("company_id", b.CompanyID).Str("budget_id", b.ID).Msg("[budget][usecase] deleted")
	return nil
}

// Duplicate copies a budget and its items into a new draft. An empty title
// defaults to "<title> - Cópia".
func (u *BudgetUseCase) Duplicate(ctx context.Context, companyID, id, title string) (entities.Budget, error) {
	src, err := u.GetByID(ctx, companyID, id)
	if err != nil {
		return entities.Budget{}, err
	}

	if strings.TrimSpace(title) == "" {
		base := []rune(strings.TrimSpace(src.Title))
		if keep := maxTitleLen - utf8.RuneCountInString(duplicateSuffix); len(base) > keep {
			base = base[:keep]
		}
		title = string(base) + duplicateSuffix
	}
	if title, err = normalizeTitle(title); err != nil {
		return entities.Budget{}, err
	}

	now := u.now().UTC()
	dup := src
	dup.ID = uuid.NewString()
	dup.Title = title
	dup.Status = entities.BudgetStatusDraft
	dup.Version = 1
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.Subtotals = make(map[string]float64, len(src.Subtotals))
	for k, v := range src.Subtotals {
		dup.Subtotals[k] = v
	}
	dup.Items = make([]entities.BudgetItem, len(src.Items))
	for i, it := range src.Items {
		it.ID = uuid.NewString()
		it.BudgetID = dup.ID
		dup.Items[i] = it
	}

	created, err := u.repo.CreateWithItems(ctx, dup)
	if err != nil {
		return entities.Budget{}, err
	}
	log.Info().Str("source_id", src.ID).Str("budget_id", created.ID).Msg("[budget][usecase] duplicated")
	return created, nil
}

// Calculate previews a calculation without persisting anything.
func (u *BudgetUseCase) Calculate(ctx context.Context, companyID string, in CalculateInput) (calculation.CalculationResult, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return calculation.CalculationResult{}, ErrInvalidCompanyID
	}
	tpl, err := u.loadTemplate(ctx, companyID, in.TemplateID)
	if err != nil {
		return calculation.CalculationResult{}, err
	}

	var opts []calculation.CalculateOption
	if in.Overrides != nil {
		opts = append(opts, calculation.WithOverrides(*in.Overrides))
	}
	return u.engine.Calculate(ctx, tpl, numberItems(in.Items), companyID, opts...)
}

func (u *BudgetUseCase) Validate(ctx context.Context, companyID, templateID string, items []calculation.Item) (calculation.ValidationResult, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return calculation.ValidationResult{}, ErrInvalidCompanyID
	}
	tpl, err := u.loadTemplate(ctx, companyID, templateID)
	if err != nil {
		return calculation.ValidationResult{}, err
	}
	return u.engine.Validate(ctx, tpl, items)
}

func (u *BudgetUseCase) Stats(ctx context.Context, companyID string) (entities.BudgetStats, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.BudgetStats{}, ErrInvalidCompanyID
	}

	list, _, err := u.repo.List(ctx, companyID, entities.BudgetFilter{})
	if err != nil {
		return entities.BudgetStats{}, err
	}

	stats := entities.BudgetStats{
		Total: len(list),
		ByStatus: map[entities.BudgetStatus]int{
			entities.BudgetStatusDraft:    0,
			entities.BudgetStatusSent:     0,
			entities.BudgetStatusApproved: 0,
			entities.BudgetStatusRejected: 0,
		},
	}
	total, approved := decimal.Zero, decimal.Zero
	for _, b := range list {
		stats.ByStatus[b.Status]++
		amount := decimal.NewFromFloat(b.TotalAmount)
		total = total.Add(amount)
		if b.Status == entities.BudgetStatusApproved {
			approved = approved.Add(amount)
		}
	}
	stats.TotalValue = total.Round(2).InexactFloat64()
	stats.ApprovedValue = approved.Round(2).InexactFloat64()
	return stats, nil
}

func (u *BudgetUseCase) Strategies() []string {
	return u.engine.Strategies()
}

func (u *BudgetUseCase) loadTemplate(ctx context.Context, companyID, templateID string) (entities.Template, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return entities.Template{}, ErrInvalidTemplateID
	}
	tpl, err := u.templates.GetByID(ctx, companyID, templateID)
	if err != nil {
		return entities.Template{}, err
	}
	if tpl.ID == "" {
		return entities.Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

// applyResult copies a calculation into the budget, rounding money to cents.
func applyResult(b *entities.Budget, result calculation.CalculationResult) error {
	b.TotalAmount = roundMoney(result.Total)

	b.Subtotals = make(map[string]float64, len(result.Subtotals))
	for name, v := range result.Subtotals {
		b.Subtotals[name] = roundMoney(v)
	}

	b.Items = make([]entities.BudgetItem, 0, len(result.Items))
	for _, it := range result.Items {
		b.Items = append(b.Items, entities.BudgetItem{
			ID:          uuid.NewString(),
			BudgetID:    b.ID,
			CategoryID:  it.CategoryID,
			FieldValues: it.FieldValues,
			Amount:      roundMoney(it.Amount),
			Order:       it.Order,
		})
	}

	meta, err := json.Marshal(budgetMetadata{Metadata: result.Metadata, Warnings: result.Warnings})
	if err != nil {
		return fmt.Errorf("encode calculation metadata: %w", err)
	}
	b.Metadata = meta
	return nil
}

// numberItems gives unordered items their position as order.
func numberItems(items []calculation.Item) []calculation.Item {
	out := make([]calculation.Item, len(items))
	for i, it := range items {
		if it.Order == 0 {
			it.Order = i + 1
		}
		if it.FieldValues == nil {
			it.FieldValues = calculation.FieldValues{}
		}
		out[i] = it
	}
	return out
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return "", ErrInvalidBudgetTitle
	}
	return title, nil
}

func checkTransition(from, to entities.BudgetStatus) error {
	if !to.Valid() {
		return ErrInvalidBudgetStatus
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
