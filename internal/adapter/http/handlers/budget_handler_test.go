package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"orcamentos/internal/adapter/http/handlers/mocks"
	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func newBudgetRouter(t *testing.T) (*gin.Engine, *mocks.MockIBudgetUseCase) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIBudgetUseCase(ctrl)
	h := NewBudgetHandler(uc)

	r := gin.New()
	r.GET("/v1/strategies", h.ListStrategies)
	g := r.Group("/v1/companies/:company_id/budgets")
	g.POST("", h.CreateBudget)
	g.GET("", h.ListBudgets)
	g.GET("/stats", h.GetBudgetStats)
	g.POST("/calculate", h.CalculateBudget)
	g.POST("/validate", h.ValidateBudget)
	g.GET("/:budget_id", h.GetBudget)
	g.PUT("/:budget_id", h.UpdateBudget)
	g.DELETE("/:budget_id", h.DeleteBudget)
	g.POST("/:budget_id/duplicate", h.DuplicateBudget)
	g.PATCH("/:budget_id/status", h.UpdateBudgetStatus)
	return r, uc
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("invalid json", func(t *testing.T) {
		r, _ := newBudgetRouter(t)
		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets", "{")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("item without category", func(t *testing.T) {
		r, _ := newBudgetRouter(t)
		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets", `{"template_id":"tpl-1","title":"Obra","items":[{"field_values":{}}]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("validation failure carries errors and warnings", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Create(gomock.Any(), "c-1", gomock.Any()).Return(entities.Budget{}, &calculation.ValidationError{
			Result: calculation.ValidationResult{
				Errors:   []string{`required field "Quantidade de Horas" is missing`},
				Warnings: []string{`category "Despesas" has no items`},
			},
		})

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets", `{"template_id":"tpl-1","title":"Obra","items":[{"category_id":"rh","field_values":{}}]}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
		body := decodeBody(t, w)
		details, ok := body["details"].(map[string]any)
		if !ok || body["code"] != "VALIDATION_FAILED" {
			t.Fatalf("unexpected error body: %s", w.Body.String())
		}
		if errs, _ := details["errors"].([]any); len(errs) != 1 {
			t.Fatalf("expected one error, got %v", details["errors"])
		}
		if warns, _ := details["warnings"].([]any); len(warns) != 1 {
			t.Fatalf("expected one warning, got %v", details["warnings"])
		}
	})

	t.Run("success", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Create(gomock.Any(), "c-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, companyID string, in usecase.BudgetInput) (entities.Budget, error) {
				if in.TemplateID != "tpl-1" || len(in.Items) != 1 || in.Items[0].FieldValues["horas"] != 10.0 {
					t.Fatalf("unexpected input: %+v", in)
				}
				return entities.Budget{ID: "b-1", CompanyID: companyID, Status: entities.BudgetStatusDraft, TotalAmount: 590, Version: 1}, nil
			})

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets", `{"template_id":"tpl-1","title":"Obra","items":[{"category_id":"rh","field_values":{"horas":10}}]}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["id"] != "b-1" || body["total_amount"] != 590.0 || body["status"] != "draft" {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})
}

func TestBudgetHandler_Lifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("list passes filters", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().List(gomock.Any(), "c-1", entities.BudgetFilter{Status: entities.BudgetStatusSent, Page: 1, Limit: 10}).
			Return(entities.NewPage([]entities.Budget{{ID: "b-1"}}, 1, 1, 10), nil)

		w := performRequest(r, http.MethodGet, "/v1/companies/c-1/budgets?status=sent&page=1&limit=10", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("get not found", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().GetByID(gomock.Any(), "c-1", "b-x").Return(entities.Budget{}, usecase.ErrBudgetNotFound)

		w := performRequest(r, http.MethodGet, "/v1/companies/c-1/budgets/b-x", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("update of sent budget items conflicts", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Update(gomock.Any(), "c-1", "b-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _, _ string, in usecase.BudgetUpdateInput) (entities.Budget, error) {
				if !in.ReplaceItems {
					t.Fatalf("items sent must replace stored items")
				}
				return entities.Budget{}, usecase.ErrBudgetNotEditable
			})

		w := performRequest(r, http.MethodPut, "/v1/companies/c-1/budgets/b-1", `{"items":[]}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("invalid transition", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().UpdateStatus(gomock.Any(), "c-1", "b-1", entities.BudgetStatusApproved).
			Return(entities.Budget{}, fmt.Errorf("%w: draft -> approved", usecase.ErrInvalidStatusTransition))

		w := performRequest(r, http.MethodPatch, "/v1/companies/c-1/budgets/b-1/status", `{"status":"approved"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("status change", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().UpdateStatus(gomock.Any(), "c-1", "b-1", entities.BudgetStatusSent).
			Return(entities.Budget{ID: "b-1", Status: entities.BudgetStatusSent}, nil)

		w := performRequest(r, http.MethodPatch, "/v1/companies/c-1/budgets/b-1/status", `{"status":"sent"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("delete non draft conflicts", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Delete(gomock.Any(), "c-1", "b-1").Return(usecase.ErrBudgetNotDeletable)

		w := performRequest(r, http.MethodDelete, "/v1/companies/c-1/budgets/b-1", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("duplicate without body", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Duplicate(gomock.Any(), "c-1", "b-1", "").Return(entities.Budget{ID: "b-2", Title: "Obra - Cópia"}, nil)

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets/b-1/duplicate", "")
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	})

	t.Run("duplicate with title", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Duplicate(gomock.Any(), "c-1", "b-1", "Nova obra").Return(entities.Budget{ID: "b-2"}, nil)

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets/b-1/duplicate", `{"title":"Nova obra"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	})
}

func TestBudgetHandler_Previews(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("calculate forwards overrides", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Calculate(gomock.Any(), "c-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, in usecase.CalculateInput) (calculation.CalculationResult, error) {
				if in.Overrides == nil || in.Overrides.TaxRates["default"] != 0.1 {
					t.Fatalf("unexpected overrides: %+v", in.Overrides)
				}
				return calculation.CalculationResult{Total: 550, Subtotals: map[string]float64{"Labor": 500}, Warnings: []string{}}, nil
			})

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets/calculate",
			`{"template_id":"tpl-1","items":[{"category_id":"rh","field_values":{"horas":10}}],"overrides":{"tax_rates":{"default":0.1}}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["total"] != 550.0 {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})

	t.Run("validate returns the result even when invalid", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Validate(gomock.Any(), "c-1", "tpl-1", gomock.Any()).
			Return(calculation.ValidationResult{Valid: false, Errors: []string{"bad"}, Warnings: []string{}}, nil)

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets/validate", `{"template_id":"tpl-1","items":[]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["valid"] != false {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})

	t.Run("template not found", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Validate(gomock.Any(), "c-1", "tpl-x", gomock.Any()).Return(calculation.ValidationResult{}, usecase.ErrTemplateNotFound)

		w := performRequest(r, http.MethodPost, "/v1/companies/c-1/budgets/validate", `{"template_id":"tpl-x"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("stats and strategies", func(t *testing.T) {
		r, uc := newBudgetRouter(t)
		uc.EXPECT().Stats(gomock.Any(), "c-1").Return(entities.BudgetStats{Total: 2, ApprovedValue: 200.3}, nil)
		uc.EXPECT().Strategies().Return([]string{"default", "industrial", "service"})

		if w := performRequest(r, http.MethodGet, "/v1/companies/c-1/budgets/stats", ""); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		w := performRequest(r, http.MethodGet, "/v1/strategies", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if list, _ := decodeBody(t, w)["strategies"].([]any); len(list) != 3 {
			t.Fatalf("unexpected strategies: %s", w.Body.String())
		}
	})
}
