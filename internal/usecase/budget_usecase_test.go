package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	mock_interfaces "orcamentos/internal/usecase/interfaces/mocks"
)

var budgetNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func laborTemplate() entities.Template {
	return entities.Template{
		ID:               "tpl-1",
		CompanyID:        "company-1",
		Name:             "Mão de obra",
		Active:           true,
		CalculationRules: entities.CalculationRules{Strategy: "default"},
		Categories: []entities.Category{{
			ID:         "cat-1",
			Name:       "Labor",
			Repeatable: true,
			Fields: []entities.Field{{
				ID:    "total",
				Label: "total",
				Kind:  entities.FieldKindCalculated,
				Calculation: &entities.FieldCalculation{
					Formula:   "quantidade_horas * valor_por_hora",
					DependsOn: []string{"quantidade_horas", "valor_por_hora"},
				},
			}},
		}},
	}
}

type budgetFixture struct {
	budgets   *mock_interfaces.MockIBudgetRepository
	templates *mock_interfaces.MockITemplateRepository
	uc        *BudgetUseCase
}

func newBudgetFixture(t *testing.T) budgetFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	companies := mock_interfaces.NewMockICompanyRepository(ctrl)
	companies.EXPECT().GetByID(gomock.Any(), "company-1").Return(entities.Company{ID: "company-1", Name: "ACME"}, nil).AnyTimes()
	engine := calculation.NewEngine(companies, zerolog.Nop(), calculation.WithClock(func() time.Time { return budgetNow }))

	f := budgetFixture{
		budgets:   mock_interfaces.NewMockIBudgetRepository(ctrl),
		templates: mock_interfaces.NewMockITemplateRepository(ctrl),
	}
	f.uc = NewBudgetUseCase(f.budgets, f.templates, engine)
	f.uc.now = func() time.Time { return budgetNow }
	return f
}

func laborItems() []calculation.Item {
	return []calculation.Item{{CategoryID: "cat-1", FieldValues: calculation.FieldValues{"quantidade_horas": 10, "valor_por_hora": 50}}}
}

func TestBudgetUseCase_Create(t *testing.T) {
	t.Run("invalid title", func(t *testing.T) {
		f := newBudgetFixture(t)
		_, err := f.uc.Create(context.Background(), "company-1", BudgetInput{TemplateID: "tpl-1", Title: "ab"})
		if !errors.Is(err, ErrInvalidBudgetTitle) {
			t.Fatalf("expected ErrInvalidBudgetTitle, got %v", err)
		}
	})

	t.Run("template not found", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-x").Return(entities.Template{}, nil)

		_, err := f.uc.Create(context.Background(), "company-1", BudgetInput{TemplateID: "tpl-x", Title: "Reforma"})
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	t.Run("inactive template", func(t *testing.T) {
		f := newBudgetFixture(t)
		tpl := laborTemplate()
		tpl.Active = false
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(tpl, nil)

		_, err := f.uc.Create(context.Background(), "company-1", BudgetInput{TemplateID: "tpl-1", Title: "Reforma"})
		if !errors.Is(err, ErrTemplateInactive) {
			t.Fatalf("expected ErrTemplateInactive, got %v", err)
		}
	})

	t.Run("validation failure is not persisted", func(t *testing.T) {
		f := newBudgetFixture(t)
		tpl := laborTemplate()
		tpl.Categories[0].Fields = append(tpl.Categories[0].Fields, entities.Field{ID: "cliente", Label: "Cliente", Kind: entities.FieldKindText, Required: true})
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(tpl, nil)

		_, err := f.uc.Create(context.Background(), "company-1", BudgetInput{TemplateID: "tpl-1", Title: "Reforma", Items: laborItems()})
		if !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
		var verr *calculation.ValidationError
		if !errors.As(err, &verr) || len(verr.Result.Errors) == 0 {
			t.Fatalf("expected validation details, got %v", err)
		}
	})

	t.Run("calculates and persists", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(laborTemplate(), nil)
		f.budgets.EXPECT().CreateWithItems(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b entities.Budget) (entities.Budget, error) { return b, nil },
		)

		b, err := f.uc.Create(context.Background(), " company-1 ", BudgetInput{TemplateID: "tpl-1", Title: "  Reforma  ", Items: laborItems()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.ID == "" || b.Title != "Reforma" || b.Status != entities.BudgetStatusDraft || b.Version != 1 {
			t.Fatalf("unexpected budget: %+v", b)
		}
		if b.TotalAmount != 590 || b.Subtotals["Labor"] != 500 {
			t.Fatalf("unexpected totals: %v %v", b.TotalAmount, b.Subtotals)
		}
		if len(b.Items) != 1 || b.Items[0].Amount != 500 || b.Items[0].Order != 1 || b.Items[0].BudgetID != b.ID {
			t.Fatalf("unexpected items: %+v", b.Items)
		}
		var meta map[string]any
		if err := json.Unmarshal(b.Metadata, &meta); err != nil {
			t.Fatalf("metadata must be json: %v", err)
		}
		if meta["strategy_used"] != "default" {
			t.Fatalf("unexpected metadata: %v", meta)
		}
	})
}

func TestBudgetUseCase_List(t *testing.T) {
	t.Run("invalid status filter", func(t *testing.T) {
		f := newBudgetFixture(t)
		_, err := f.uc.List(context.Background(), "company-1", entities.BudgetFilter{Status: "archived"})
		if !errors.Is(err, ErrInvalidBudgetStatus) {
			t.Fatalf("expected ErrInvalidBudgetStatus, got %v", err)
		}
	})

	t.Run("defaults pagination", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().List(gomock.Any(), "company-1", entities.BudgetFilter{Status: entities.BudgetStatusSent, Page: 1, Limit: 10}).
			Return([]entities.Budget{{ID: "b1"}}, 21, nil)

		page, err := f.uc.List(context.Background(), "company-1", entities.BudgetFilter{Status: entities.BudgetStatusSent})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Total != 21 || page.TotalPages != 3 || page.Page != 1 {
			t.Fatalf("unexpected page: %+v", page)
		}
	})
}

func TestBudgetUseCase_Update(t *testing.T) {
	stored := entities.Budget{ID: "b1", CompanyID: "company-1", TemplateID: "tpl-1", Title: "Reforma", Status: entities.BudgetStatusDraft, Version: 1, TotalAmount: 10}

	t.Run("replaces items and bumps version", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(stored, nil)
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(laborTemplate(), nil)
		f.budgets.EXPECT().Update(gomock.Any(), gomock.Any(), true).DoAndReturn(
			func(_ context.Context, b entities.Budget, _ bool) (entities.Budget, error) { return b, nil },
		)

		b, err := f.uc.Update(context.Background(), "company-1", "b1", BudgetUpdateInput{Items: laborItems(), ReplaceItems: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Version != 2 || b.TotalAmount != 590 || len(b.Items) != 1 {
			t.Fatalf("unexpected budget: %+v", b)
		}
	})

	t.Run("title only keeps items", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(stored, nil)
		f.budgets.EXPECT().Update(gomock.Any(), gomock.Any(), false).DoAndReturn(
			func(_ context.Context, b entities.Budget, _ bool) (entities.Budget, error) { return b, nil },
		)

		title := "Reforma da cozinha"
		b, err := f.uc.Update(context.Background(), "company-1", "b1", BudgetUpdateInput{Title: &title})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.Title != title || b.Version != 1 || b.TotalAmount != 10 {
			t.Fatalf("unexpected budget: %+v", b)
		}
	})

	t.Run("items of a sent budget are frozen", func(t *testing.T) {
		f := newBudgetFixture(t)
		sent := stored
		sent.Status = entities.BudgetStatusSent
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(sent, nil)

		_, err := f.uc.Update(context.Background(), "company-1", "b1", BudgetUpdateInput{ReplaceItems: true})
		if !errors.Is(err, ErrBudgetNotEditable) {
			t.Fatalf("expected ErrBudgetNotEditable, got %v", err)
		}
	})
}

func TestBudgetUseCase_UpdateStatus(t *testing.T) {
	cases := []struct {
		name string
		from entities.BudgetStatus
		to   entities.BudgetStatus
		want error
	}{
		{name: "draft to sent", from: entities.BudgetStatusDraft, to: entities.BudgetStatusSent},
		{name: "sent to approved", from: entities.BudgetStatusSent, to: entities.BudgetStatusApproved},
		{name: "rejected back to draft", from: entities.BudgetStatusRejected, to: entities.BudgetStatusDraft},
		{name: "draft to approved", from: entities.BudgetStatusDraft, to: entities.BudgetStatusApproved, want: ErrInvalidStatusTransition},
		{name: "approved reopens as draft", from: entities.BudgetStatusApproved, to: entities.BudgetStatusDraft},
		{name: "sent back to draft", from: entities.BudgetStatusSent, to: entities.BudgetStatusDraft},
		{name: "approved to sent", from: entities.BudgetStatusApproved, to: entities.BudgetStatusSent, want: ErrInvalidStatusTransition},
		{name: "approved to rejected", from: entities.BudgetStatusApproved, to: entities.BudgetStatusRejected, want: ErrInvalidStatusTransition},
		{name: "unknown status", from: entities.BudgetStatusDraft, to: "archived", want: ErrInvalidBudgetStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBudgetFixture(t)
			f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(entities.Budget{ID: "b1", CompanyID: "company-1", Status: tc.from}, nil)
			if tc.want == nil {
				f.budgets.EXPECT().Update(gomock.Any(), gomock.Any(), false).DoAndReturn(
					func(_ context.Context, b entities.Budget, _ bool) (entities.Budget, error) { return b, nil },
				)
			}

			b, err := f.uc.UpdateStatus(context.Background(), "company-1", "b1", tc.to)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
				return
			}
			if err != nil || b.Status != tc.to {
				t.Fatalf("unexpected result err=%v status=%s", err, b.Status)
			}
		})
	}
}

func TestBudgetUseCase_Delete(t *testing.T) {
	t.Run("draft is deleted", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(entities.Budget{ID: "b1", CompanyID: "company-1", Status: entities.BudgetStatusDraft}, nil)
		f.budgets.EXPECT().Delete(gomock.Any(), "company-1", "b1").Return(nil)

		if err := f.uc.Delete(context.Background(), "company-1", "b1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("approved is kept", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(entities.Budget{ID: "b1", CompanyID: "company-1", Status: entities.BudgetStatusApproved}, nil)

		if err := f.uc.Delete(context.Background(), "company-1", "b1"); !errors.Is(err, ErrBudgetNotDeletable) {
			t.Fatalf("expected ErrBudgetNotDeletable, got %v", err)
		}
	})

	t.Run("missing budget", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(entities.Budget{}, nil)

		if err := f.uc.Delete(context.Background(), "company-1", "b1"); !errors.Is(err, ErrBudgetNotFound) {
			t.Fatalf("expected ErrBudgetNotFound, got %v", err)
		}
	})
}

func TestBudgetUseCase_Duplicate(t *testing.T) {
	src := entities.Budget{
		ID:          "b1",
		CompanyID:   "company-1",
		TemplateID:  "tpl-1",
		Title:       "Reforma",
		Status:      entities.BudgetStatusApproved,
		Version:     4,
		TotalAmount: 590,
		Subtotals:   map[string]float64{"Labor": 500},
		Items:       []entities.BudgetItem{{ID: "i1", BudgetID: "b1", CategoryID: "cat-1", Amount: 500, Order: 1}},
	}

	t.Run("default title", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(src, nil)
		f.budgets.EXPECT().CreateWithItems(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b entities.Budget) (entities.Budget, error) { return b, nil },
		)

		dup, err := f.uc.Duplicate(context.Background(), "company-1", "b1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dup.ID == "b1" || dup.Title != "Reforma - Cópia" || dup.Status != entities.BudgetStatusDraft || dup.Version != 1 {
			t.Fatalf("unexpected duplicate: %+v", dup)
		}
		if dup.TotalAmount != 590 || len(dup.Items) != 1 || dup.Items[0].ID == "i1" || dup.Items[0].BudgetID != dup.ID {
			t.Fatalf("items not copied: %+v", dup.Items)
		}
		if src.Items[0].ID != "i1" {
			t.Fatalf("source items must not be mutated")
		}
	})

	t.Run("long titles are truncated", func(t *testing.T) {
		f := newBudgetFixture(t)
		long := src
		long.Title = strings.Repeat("a", 254)
		f.budgets.EXPECT().GetByID(gomock.Any(), "company-1", "b1").Return(long, nil)
		f.budgets.EXPECT().CreateWithItems(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, b entities.Budget) (entities.Budget, error) { return b, nil },
		)

		dup, err := f.uc.Duplicate(context.Background(), "company-1", "b1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len([]rune(dup.Title)); n > 255 {
			t.Fatalf("expected at most 255 runes, got %d", n)
		}
		if !strings.HasSuffix(dup.Title, "- Cópia") {
			t.Fatalf("duplicate title must keep the copy marker, got %q", dup.Title)
		}
		if dup.Title == long.Title {
			t.Fatalf("duplicate title must differ from the source")
		}
	})
}

func TestBudgetUseCase_CalculateAndValidate(t *testing.T) {
	t.Run("calculate applies overrides", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(laborTemplate(), nil)

		res, err := f.uc.Calculate(context.Background(), "company-1", CalculateInput{
			TemplateID: "tpl-1",
			Items:      laborItems(),
			Overrides:  &calculation.Overrides{TaxRates: map[string]float64{"default": 0.1}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Total < 549.99 || res.Total > 550.01 {
			t.Fatalf("expected total 550, got %v", res.Total)
		}
	})

	t.Run("calculate requires template id", func(t *testing.T) {
		f := newBudgetFixture(t)
		if _, err := f.uc.Calculate(context.Background(), "company-1", CalculateInput{}); !errors.Is(err, ErrInvalidTemplateID) {
			t.Fatalf("expected ErrInvalidTemplateID, got %v", err)
		}
	})

	t.Run("validate reports unknown category", func(t *testing.T) {
		f := newBudgetFixture(t)
		f.templates.EXPECT().GetByID(gomock.Any(), "company-1", "tpl-1").Return(laborTemplate(), nil)

		res, err := f.uc.Validate(context.Background(), "company-1", "tpl-1", []calculation.Item{{CategoryID: "ghost"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Valid || len(res.Warnings) == 0 {
			t.Fatalf("expected a warning, got %+v", res)
		}
	})
}

func TestBudgetUseCase_Stats(t *testing.T) {
	f := newBudgetFixture(t)
	f.budgets.EXPECT().List(gomock.Any(), "company-1", entities.BudgetFilter{}).Return([]entities.Budget{
		{ID: "b1", Status: entities.BudgetStatusDraft, TotalAmount: 100.10},
		{ID: "b2", Status: entities.BudgetStatusApproved, TotalAmount: 200.20},
		{ID: "b3", Status: entities.BudgetStatusApproved, TotalAmount: 0.1},
	}, 3, nil)

	stats, err := f.uc.Stats(context.Background(), "company-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 3 || stats.ByStatus[entities.BudgetStatusApproved] != 2 || stats.ByStatus[entities.BudgetStatusSent] != 0 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalValue != 300.4 || stats.ApprovedValue != 200.3 {
		t.Fatalf("unexpected values: %+v", stats)
	}
}

func TestBudgetUseCase_Strategies(t *testing.T) {
	f := newBudgetFixture(t)
	got := f.uc.Strategies()
	if len(got) != 3 {
		t.Fatalf("expected three strategies, got %v", got)
	}
}
