package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orcamentos/internal/adapter/http/handlers/mocks"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

type failingReadCloser struct{}

func (failingReadCloser) Read(_ []byte) (int, error) { return 0, errors.New("read error") }
func (failingReadCloser) Close() error               { return nil }

const paymentsPath = "/v1/companies/c-1/budgets/b-1/payments"

func newPaymentRouter(t *testing.T, mock bool) (*gin.Engine, *mocks.MockIBudgetPaymentUseCase) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIBudgetPaymentUseCase(ctrl)
	h := NewBudgetPaymentHandler(uc, mock)

	r := gin.New()
	r.POST("/v1/companies/:company_id/budgets/:budget_id/payments", h.CreatePayment)
	r.GET("/v1/companies/:company_id/budgets/:budget_id/payments", h.ListPayments)
	return r, uc
}

func TestBudgetPaymentHandler_CreatePayment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("invalid payload", func(t *testing.T) {
		r, _ := newPaymentRouter(t, false)
		w := performRequest(r, http.MethodPost, paymentsPath, "{")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("null envelope", func(t *testing.T) {
		r, _ := newPaymentRouter(t, false)
		w := performRequest(r, http.MethodPost, paymentsPath, `{"mp_payload":null}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("invalid payload in mock mode falls back to empty payload", func(t *testing.T) {
		r, uc := newPaymentRouter(t, true)
		uc.EXPECT().CreateAndApprove(gomock.Any(), "c-1", "b-1", json.RawMessage("{}")).
			Return(entities.BudgetPayment{ID: "pay-1", BudgetID: "b-1", Status: entities.PaymentStatusAprovado}, nil)

		w := performRequest(r, http.MethodPost, paymentsPath, "{")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("envelope is unwrapped", func(t *testing.T) {
		r, uc := newPaymentRouter(t, false)
		uc.EXPECT().CreateAndApprove(gomock.Any(), "c-1", "b-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _, _ string, payload json.RawMessage) (entities.BudgetPayment, error) {
				var m map[string]any
				if err := json.Unmarshal(payload, &m); err != nil || m["payment_method_id"] != "pix" {
					t.Fatalf("unexpected payload: %s", payload)
				}
				return entities.BudgetPayment{ID: "pay-1"}, nil
			})

		w := performRequest(r, http.MethodPost, paymentsPath, `{"mp_payload":{"payment_method_id":"pix"}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("body read error", func(t *testing.T) {
		r, _ := newPaymentRouter(t, false)
		req := httptest.NewRequest(http.MethodPost, paymentsPath, nil)
		req.Body = failingReadCloser{}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	mapped := []struct {
		name string
		err  error
		want int
	}{
		{"budget not approved", usecase.ErrBudgetNotApproved, http.StatusConflict},
		{"budget not found", usecase.ErrBudgetNotFound, http.StatusNotFound},
		{"provider unauthorized", usecase.ErrPaymentGatewayUnauthorized, http.StatusUnauthorized},
		{"provider customer not found", usecase.ErrPaymentGatewayCustomerNotFound, http.StatusBadRequest},
		{"gateway not configured", usecase.ErrPaymentGatewayNotConfigured, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range mapped {
		t.Run(tc.name, func(t *testing.T) {
			r, uc := newPaymentRouter(t, false)
			uc.EXPECT().CreateAndApprove(gomock.Any(), "c-1", "b-1", gomock.Any()).Return(entities.BudgetPayment{}, tc.err)

			w := performRequest(r, http.MethodPost, paymentsPath, `{"payment_method_id":"pix","payer":{"email":"x@test.com"}}`)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		r, uc := newPaymentRouter(t, false)
		now := time.Now().UTC()
		uc.EXPECT().CreateAndApprove(gomock.Any(), "c-1", "b-1", gomock.Any()).
			Return(entities.BudgetPayment{ID: "pay-1", BudgetID: "b-1", Amount: 590, Date: now, Status: entities.PaymentStatusAprovado}, nil)

		w := performRequest(r, http.MethodPost, paymentsPath, `{"payment_method_id":"pix"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["payment_id"] != "pay-1" || body["status"] != "aprovado" || body["amount"] != 590.0 {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})
}

func TestBudgetPaymentHandler_ListPayments(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("empty list", func(t *testing.T) {
		r, uc := newPaymentRouter(t, false)
		uc.EXPECT().ListByBudgetID(gomock.Any(), "c-1", "b-1").Return([]entities.BudgetPayment{}, nil)

		w := performRequest(r, http.MethodGet, paymentsPath, "")
		if w.Code != http.StatusOK || w.Body.String() != "[]" {
			t.Fatalf("expected empty list, got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("budget not found", func(t *testing.T) {
		r, uc := newPaymentRouter(t, false)
		uc.EXPECT().ListByBudgetID(gomock.Any(), "c-1", "b-1").Return(nil, usecase.ErrBudgetNotFound)

		w := performRequest(r, http.MethodGet, paymentsPath, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}
