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

// TemplateHandler handles HTTP requests for the budget templates of a
// company.
type TemplateHandler struct {
	usecase usecase.ITemplateUseCase
}

func NewTemplateHandler(uc usecase.ITemplateUseCase) *TemplateHandler {
	return &TemplateHandler{usecase: uc}
}

// CreateTemplate godoc
// @Summary  Create a template
// @Tags     templates
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                   true  "Company ID"
// @Param    template    body      request.TemplateRequest  true  "Template"
// @Success  201         {object}  response.TemplateResponse
// @Failure  400         {object}  pkg.HTTPError
// @Failure  422         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var payload request.TemplateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	tpl, err := h.usecase.Create(c.Request.Context(), c.Param("company_id"), payload.ToTemplate())
	if err != nil {
		respondError(c, mapTemplateError(err))
		return
	}
	log.Info().Str("company_id", tpl.CompanyID).Str("template_id", tpl.ID).Msg("[template][handler] template created")

	c.JSON(http.StatusCreated, response.FromTemplate(tpl))
}

// ListTemplates godoc
// @Summary  List templates
// @Tags     templates
// @Produce  json
// @Param    company_id  path      string  true   "Company ID"
// @Param    search      query     string  false  "Name search"
// @Param    is_active   query     bool    false  "Active filter"
// @Param    page        query     int     false  "Page"
// @Param    limit       query     int     false  "Page size"
// @Success  200         {object}  response.PageResponse[response.TemplateResponse]
// @Router   /companies/{company_id}/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var query request.TemplateListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, errInvalidRequest)
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	page, err := h.usecase.List(c.Request.Context(), c.Param("company_id"), filter)
	if err != nil {
		respondError(c, mapTemplateError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromPage(page, response.FromTemplate))
}

// GetTemplate godoc
// @Summary  Get a template
// @Tags     templates
// @Produce  json
// @Param    company_id   path      string  true  "Company ID"
// @Param    template_id  path      string  true  "Template ID"
// @Success  200          {object}  response.TemplateResponse
// @Failure  404          {object}  pkg.HTTPError
// @Router   /companies/{company_id}/templates/{template_id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.usecase.GetByID(c.Request.Context(), c.Param("company_id"), c.Param("template_id"))
	if err != nil {
		respondError(c, mapTemplateError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromTemplate(tpl))
}

// UpdateTemplate godoc
// @Summary  Update a template
// @Tags     templates
// @Accept   json
// @Produce  json
// @Param    company_id   path      string                         true  "Company ID"
// @Param    template_id  path      string                         true  "Template ID"
// @Param    template     body      request.TemplateUpdateRequest  true  "Fields to change"
// @Success  200          {object}  response.TemplateResponse
// @Failure  404          {object}  pkg.HTTPError
// @Failure  422          {object}  pkg.HTTPError
// @Router   /companies/{company_id}/templates/{template_id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var payload request.TemplateUpdateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	tpl, err := h.usecase.Update(c.Request.Context(), c.Param("company_id"), c.Param("template_id"), payload.ToInput())
	if err != nil {
		respondError(c, mapTemplateError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromTemplate(tpl))
}

// DeleteTemplate godoc
// @Summary  Delete a template
// @Tags     templates
// @Param    company_id   path  string  true  "Company ID"
// @Param    template_id  path  string  true  "Template ID"
// @Success  204
// @Failure  404  {object}  pkg.HTTPError
// @Router   /companies/{company_id}/templates/{template_id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.usecase.Delete(c.Request.Context(), c.Param("company_id"), c.Param("template_id")); err != nil {
		respondError(c, mapTemplateError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func mapTemplateError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidCompanyID), errors.Is(err, usecase.ErrInvalidTemplateID):
		return errInvalidRequest
	case errors.Is(err, usecase.ErrInvalidTemplate):
		return pkg.NewDomainError("INVALID_TEMPLATE", "Invalid template", err, http.StatusUnprocessableEntity).WithDetails(err.Error())
	case errors.Is(err, usecase.ErrCompanyNotFound):
		return pkg.NewDomainErrorSimple("COMPANY_NOT_FOUND", "Company not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrTemplateNotFound):
		return pkg.NewDomainErrorSimple("TEMPLATE_NOT_FOUND", "Template not found", http.StatusNotFound)
	default:
		return internalError(err)
	}
}
