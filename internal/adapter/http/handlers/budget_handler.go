package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	request "orcamentos/internal/adapter/http/dto/request"
	response "orcamentos/internal/adapter/http/dto/response"
	"orcamentos/internal/calculation"
	"orcamentos/internal/usecase"
	"orcamentos/pkg"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// BudgetHandler handles HTTP requests for budgets (orçamentos), including
// calculation and validation previews.
type BudgetHandler struct {
	usecase usecase.IBudgetUseCase
}

func NewBudgetHandler(uc usecase.IBudgetUseCase) *BudgetHandler {
	return &BudgetHandler{usecase: uc}
}

// CreateBudget godoc
// @Summary  Create a budget
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                 true  "Company ID"
// @Param    budget      body      request.BudgetRequest  true  "Budget"
// @Success  201         {object}  response.BudgetResponse
// @Failure  400         {object}  pkg.HTTPError
// @Failure  404         {object}  pkg.HTTPError
// @Failure  422         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var payload request.BudgetRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	budget, err := h.usecase.Create(c.Request.Context(), c.Param("company_id"), payload.ToInput())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}
	log.Info().Str("company_id", budget.CompanyID).Str("budget_id", budget.ID).Float64("total", budget.TotalAmount).Msg("[budget][handler] budget created")

	c.JSON(http.StatusCreated, response.FromBudget(budget))
}

// ListBudgets godoc
// @Summary  List budgets
// @Tags     budgets
// @Produce  json
// @Param    company_id   path      string  true   "Company ID"
// @Param    search       query     string  false  "Title search"
// @Param    status       query     string  false  "Status filter"
// @Param    template_id  query     string  false  "Template filter"
// @Param    page         query     int     false  "Page"
// @Param    limit        query     int     false  "Page size"
// @Success  200          {object}  response.PageResponse[response.BudgetResponse]
// @Router   /companies/{company_id}/budgets [get]
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	var query request.BudgetListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	page, err := h.usecase.List(c.Request.Context(), c.Param("company_id"), query.ToFilter())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromPage(page, response.FromBudget))
}

// GetBudget godoc
// @Summary  Get a budget with its items
// @Tags     budgets
// @Produce  json
// @Param    company_id  path      string  true  "Company ID"
// @Param    budget_id   path      string  true  "Budget ID"
// @Success  200         {object}  response.BudgetResponse
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	budget, err := h.usecase.GetByID(c.Request.Context(), c.Param("company_id"), c.Param("budget_id"))
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromBudget(budget))
}

// UpdateBudget godoc
// @Summary  Update a budget
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                       true  "Company ID"
// @Param    budget_id   path      string                       true  "Budget ID"
// @Param    budget      body      request.BudgetUpdateRequest  true  "Fields to change"
// @Success  200         {object}  response.BudgetResponse
// @Failure  404         {object}  pkg.HTTPError
// @Failure  409         {object}  pkg.HTTPError
// @Failure  422         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	var payload request.BudgetUpdateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	budget, err := h.usecase.Update(c.Request.Context(), c.Param("company_id"), c.Param("budget_id"), payload.ToInput())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromBudget(budget))
}

// UpdateBudgetStatus godoc
// @Summary  Move a budget to another status
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                       true  "Company ID"
// @Param    budget_id   path      string                       true  "Budget ID"
// @Param    status      body      request.BudgetStatusRequest  true  "Target status"
// @Success  200         {object}  response.BudgetResponse
// @Failure  400         {object}  pkg.HTTPError
// @Failure  409         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id}/status [patch]
func (h *BudgetHandler) UpdateBudgetStatus(c *gin.Context) {
	var payload request.BudgetStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	budget, err := h.usecase.UpdateStatus(c.Request.Context(), c.Param("company_id"), c.Param("budget_id"), payload.ToStatus())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}
	log.Info().Str("budget_id", budget.ID).Str("status", string(budget.Status)).Msg("[budget][handler] status changed")

	c.JSON(http.StatusOK, response.FromBudget(budget))
}

// DeleteBudget godoc
// @Summary  Delete a draft budget
// @Tags     budgets
// @Param    company_id  path  string  true  "Company ID"
// @Param    budget_id   path  string  true  "Budget ID"
// @Success  204
// @Failure  404  {object}  pkg.HTTPError
// @Failure  409  {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	if err := h.usecase.Delete(c.Request.Context(), c.Param("company_id"), c.Param("budget_id")); err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

// DuplicateBudget godoc
// @Summary  Copy a budget into a new draft
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                          true   "Company ID"
// @Param    budget_id   path      string                          true   "Budget ID"
// @Param    budget      body      request.DuplicateBudgetRequest  false  "New title"
// @Success  201         {object}  response.BudgetResponse
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id}/duplicate [post]
func (h *BudgetHandler) DuplicateBudget(c *gin.Context) {
	var payload request.DuplicateBudgetRequest
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, errInvalidRequest)
		return
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			respondError(c, errInvalidRequest)
			return
		}
	}

	budget, err := h.usecase.Duplicate(c.Request.Context(), c.Param("company_id"), c.Param("budget_id"), payload.Title)
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusCreated, response.FromBudget(budget))
}

// CalculateBudget godoc
// @Summary  Price items without saving a budget
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                    true  "Company ID"
// @Param    budget      body      request.CalculateRequest  true  "Template and items"
// @Success  200         {object}  calculation.CalculationResult
// @Failure  404         {object}  pkg.HTTPError
// @Failure  422         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/calculate [post]
func (h *BudgetHandler) CalculateBudget(c *gin.Context) {
	var payload request.CalculateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	result, err := h.usecase.Calculate(c.Request.Context(), c.Param("company_id"), payload.ToInput())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateBudget godoc
// @Summary  Validate items against a template
// @Tags     budgets
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                   true  "Company ID"
// @Param    budget      body      request.ValidateRequest  true  "Template and items"
// @Success  200         {object}  calculation.ValidationResult
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/validate [post]
func (h *BudgetHandler) ValidateBudget(c *gin.Context) {
	var payload request.ValidateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, errInvalidRequest)
		return
	}

	result, err := h.usecase.Validate(c.Request.Context(), c.Param("company_id"), payload.TemplateID, payload.ToItems())
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetStats godoc
// @Summary  Budget counts and values per status
// @Tags     budgets
// @Produce  json
// @Param    company_id  path      string  true  "Company ID"
// @Success  200         {object}  entities.BudgetStats
// @Router   /companies/{company_id}/budgets/stats [get]
func (h *BudgetHandler) GetBudgetStats(c *gin.Context) {
	stats, err := h.usecase.Stats(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		respondError(c, mapBudgetError(err))
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListStrategies godoc
// @Summary  Available calculation strategies
// @Tags     budgets
// @Produce  json
// @Success  200  {object}  response.StrategiesResponse
// @Router   /strategies [get]
func (h *BudgetHandler) ListStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, response.StrategiesResponse{Strategies: h.usecase.Strategies()})
}

func mapBudgetError(err error) *pkg.AppError {
	var validationErr *calculation.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return pkg.NewDomainError("VALIDATION_FAILED", "Budget validation failed", err, http.StatusUnprocessableEntity).
			WithDetails(gin.H{"errors": validationErr.Result.Errors, "warnings": validationErr.Result.Warnings})
	case errors.Is(err, usecase.ErrInvalidCompanyID), errors.Is(err, usecase.ErrInvalidBudgetID),
		errors.Is(err, usecase.ErrInvalidTemplateID), errors.Is(err, usecase.ErrInvalidBudgetTitle),
		errors.Is(err, usecase.ErrInvalidBudgetStatus):
		return errInvalidRequest
	case errors.Is(err, usecase.ErrInvalidSettings):
		return pkg.NewDomainError("INVALID_SETTINGS", "Invalid company settings", err, http.StatusUnprocessableEntity).WithDetails(err.Error())
	case errors.Is(err, usecase.ErrCompanyNotFound):
		return pkg.NewDomainErrorSimple("COMPANY_NOT_FOUND", "Company not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrTemplateNotFound):
		return pkg.NewDomainErrorSimple("TEMPLATE_NOT_FOUND", "Template not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrBudgetNotFound):
		return pkg.NewDomainErrorSimple("BUDGET_NOT_FOUND", "Budget not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrTemplateInactive):
		return pkg.NewDomainErrorSimple("TEMPLATE_INACTIVE", "Template is inactive", http.StatusUnprocessableEntity)
	case errors.Is(err, usecase.ErrBudgetNotEditable):
		return pkg.NewDomainErrorSimple("BUDGET_NOT_EDITABLE", "Only draft budgets can change items", http.StatusConflict)
	case errors.Is(err, usecase.ErrBudgetNotDeletable):
		return pkg.NewDomainErrorSimple("BUDGET_NOT_DELETABLE", "Only draft budgets can be deleted", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvalidStatusTransition):
		return pkg.NewDomainError("INVALID_STATUS_TRANSITION", "Invalid budget status transition", err, http.StatusConflict).WithDetails(err.Error())
	default:
		return internalError(err)
	}
}
