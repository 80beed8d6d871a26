package handlers

import (
	"context"
	"net/http"
	"testing"

	"orcamentos/internal/adapter/http/handlers/mocks"
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func newCompanyRouter(t *testing.T) (*gin.Engine, *mocks.MockICompanyUseCase) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockICompanyUseCase(ctrl)
	h := NewCompanyHandler(uc)

	r := gin.New()
	r.POST("/v1/companies", h.CreateCompany)
	r.GET("/v1/companies/:company_id", h.GetCompany)
	r.PATCH("/v1/companies/:company_id/settings", h.UpdateSettings)
	return r, uc
}

func TestCompanyHandler_CreateCompany(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("invalid email", func(t *testing.T) {
		r, _ := newCompanyRouter(t)
		w := performRequest(r, http.MethodPost, "/v1/companies", `{"name":"Agilizar","email":"nope"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		r, uc := newCompanyRouter(t)
		uc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(entities.Company{}, usecase.ErrCompanyAlreadyExists)

		w := performRequest(r, http.MethodPost, "/v1/companies", `{"name":"Agilizar","email":"contato@agilizar.com.br"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		r, uc := newCompanyRouter(t)
		uc.EXPECT().Create(gomock.Any(), usecase.CompanyInput{
			Name:     "Agilizar",
			Email:    "contato@agilizar.com.br",
			Settings: entities.CompanySettings{Currency: "BRL"},
		}).Return(entities.Company{ID: "c-1", Name: "Agilizar", Email: "contato@agilizar.com.br"}, nil)

		w := performRequest(r, http.MethodPost, "/v1/companies", `{"name":"Agilizar","email":"contato@agilizar.com.br","settings":{"currency":"BRL"}}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["id"] != "c-1" {
			t.Fatalf("unexpected response body: %s", w.Body.String())
		}
	})
}

func TestCompanyHandler_GetAndUpdateSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("not found", func(t *testing.T) {
		r, uc := newCompanyRouter(t)
		uc.EXPECT().GetByID(gomock.Any(), "c-404").Return(entities.Company{}, usecase.ErrCompanyNotFound)

		w := performRequest(r, http.MethodGet, "/v1/companies/c-404", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if body := decodeBody(t, w); body["code"] != "COMPANY_NOT_FOUND" {
			t.Fatalf("unexpected error body: %s", w.Body.String())
		}
	})

	t.Run("settings patch forwards only sent fields", func(t *testing.T) {
		r, uc := newCompanyRouter(t)
		uc.EXPECT().UpdateSettings(gomock.Any(), "c-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, patch entities.CompanySettings) (entities.Company, error) {
				if patch.ISSRate == nil || *patch.ISSRate != 0.03 || patch.TaxRate != nil {
					t.Fatalf("unexpected patch: %+v", patch)
				}
				return entities.Company{ID: "c-1", Settings: patch}, nil
			})

		w := performRequest(r, http.MethodPatch, "/v1/companies/c-1/settings", `{"iss_rate":0.03}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		r, uc := newCompanyRouter(t)
		uc.EXPECT().UpdateSettings(gomock.Any(), "c-1", gomock.Any()).Return(entities.Company{}, usecase.ErrInvalidSettings)

		w := performRequest(r, http.MethodPatch, "/v1/companies/c-1/settings", `{"tax_rate":7}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
