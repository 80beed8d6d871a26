package handlers

import (
	"errors"
	"net/http"

	request "orcamentos/internal/adapter/http/dto/request"
	response "orcamentos/internal/adapter/http/dto/response"
	"orcamentos/internal/usecase"
	"orcamentos/pkg"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CompanyHandler handles HTTP requests for companies and their pricing
// settings.
type CompanyHandler struct {
	usecase usecase.ICompanyUseCase
}

func NewCompanyHandler(uc usecase.ICompanyUseCase) *CompanyHandler {
	return &CompanyHandler{usecase: uc}
}

// CreateCompany godoc
// @Summary  Create a company
// @Tags     companies
// @Accept   json
// @Produce  json
// @Param    company  body      request.CompanyRequest  true  "Company"
// @Success  201      {object}  response.CompanyResponse
// @Failure  400      {object}  pkg.HTTPError
// @Failure  409      {object}  pkg.HTTPError
// @Router   /companies [post]
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var payload request.CompanyRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	company, err := h.usecase.Create(c.Request.Context(), payload.ToInput())
	if err != nil {
		respondError(c, mapCompanyError(err))
		return
	}
	log.Info().Str("company_id", company.ID).Msg("[company][handler] company created")

	c.JSON(http.StatusCreated, response.FromCompany(company))
}

// GetCompany godoc
// @Summary  Get a company
// @Tags     companies
// @Produce  json
// @Param    company_id  path      string  true  "Company ID"
// @Success  200         {object}  response.CompanyResponse
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id} [get]
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	company, err := h.usecase.GetByID(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		respondError(c, mapCompanyError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromCompany(company))
}

// UpdateSettings godoc
// @Summary  Update company pricing settings
// @Tags     companies
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                           true  "Company ID"
// @Param    settings    body      request.CompanySettingsRequest  true  "Settings to change"
// @Success  200         {object}  response.CompanyResponse
// @Failure  400         {object}  pkg.HTTPError
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/settings [patch]
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	var payload request.CompanySettingsRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	company, err := h.usecase.UpdateSettings(c.Request.Context(), c.Param("company_id"), payload.CompanySettings)
	if err != nil {
		respondError(c, mapCompanyError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromCompany(company))
}

func mapCompanyError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidCompanyID), errors.Is(err, usecase.ErrInvalidCompanyInput):
		return errInvalidRequest
	case errors.Is(err, usecase.ErrInvalidSettings):
		return pkg.NewDomainError("INVALID_SETTINGS", "Invalid company settings", err, http.StatusBadRequest).WithDetails(err.Error())
	case errors.Is(err, usecase.ErrCompanyAlreadyExists):
		return pkg.NewDomainErrorSimple("COMPANY_ALREADY_EXISTS", "A company with this email already exists", http.StatusConflict)
	case errors.Is(err, usecase.ErrCompanyNotFound):
		return pkg.NewDomainErrorSimple("COMPANY_NOT_FOUND", "Company not found", http.StatusNotFound)
	default:
		return internalError(err)
	}
}
