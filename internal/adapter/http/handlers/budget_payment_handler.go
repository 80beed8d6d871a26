package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	response "orcamentos/internal/adapter/http/dto/response"
	"orcamentos/internal/usecase"
	"orcamentos/pkg"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// BudgetPaymentHandler handles HTTP requests for payments of approved
// budgets.
type BudgetPaymentHandler struct {
	usecase usecase.IBudgetPaymentUseCase
	mock    bool
}

// NewBudgetPaymentHandler builds the handler. In mock mode an unreadable
// payload falls back to an empty one instead of failing the request.
func NewBudgetPaymentHandler(uc usecase.IBudgetPaymentUseCase, mock bool) *BudgetPaymentHandler {
	return &BudgetPaymentHandler{usecase: uc, mock: mock}
}

// CreatePayment godoc
// @Summary  Create and process a Mercado Pago payment for an approved budget
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    company_id  path      string                              true  "Company ID"
// @Param    budget_id   path      string                              true  "Budget ID"
// @Param    payment     body      request.BudgetPaymentCreateRequest  true  "Mercado Pago payload"
// @Success  200         {object}  response.BudgetPaymentResponse
// @Failure  400         {object}  pkg.HTTPError
// @Failure  404         {object}  pkg.HTTPError
// @Failure  409         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id}/payments [post]
func (h *BudgetPaymentHandler) CreatePayment(c *gin.Context) {
	companyID := c.Param("company_id")
	budgetID := c.Param("budget_id")
	logger := log.With().Str("company_id", companyID).Str("budget_id", budgetID).Logger()
	logger.Info().Msg("[payment][handler] create start")

	mpPayload, err := readMPPayload(c)
	if err != nil {
		if !h.mock {
			logger.Info().Err(err).Msg("[payment][handler] invalid payload")
			respondError(c, errInvalidRequest)
			return
		}
		logger.Info().Err(err).Msg("[payment][handler] payload invalid in mock mode; fallback to empty payload")
		mpPayload = json.RawMessage("{}")
	}

	created, err := h.usecase.CreateAndApprove(c.Request.Context(), companyID, budgetID, mpPayload)
	if err != nil {
		logger.Error().Err(err).Msg("[payment][handler] create failed")
		respondError(c, mapBudgetPaymentError(err))
		return
	}
	logger.Info().Str("payment_id", created.ID).Str("status", string(created.Status)).Msg("[payment][handler] create success")

	c.JSON(http.StatusOK, response.FromBudgetPayment(created))
}

// ListPayments godoc
// @Summary  List the payments of a budget
// @Tags     payments
// @Produce  json
// @Param    company_id  path  string  true  "Company ID"
// @Param    budget_id   path  string  true  "Budget ID"
// @Success  200         {array}   response.BudgetPaymentResponse
// @Failure  404         {object}  pkg.HTTPError
// @Router   /companies/{company_id}/budgets/{budget_id}/payments [get]
func (h *BudgetPaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.usecase.ListByBudgetID(c.Request.Context(), c.Param("company_id"), c.Param("budget_id"))
	if err != nil {
		respondError(c, mapBudgetPaymentError(err))
		return
	}

	c.JSON(http.StatusOK, response.FromBudgetPayments(payments))
}

// readMPPayload accepts either {"mp_payload": {...}} or the Mercado Pago
// payload itself. An empty body is an empty payload.
func readMPPayload(c *gin.Context) (json.RawMessage, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid json")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if wrapped, ok := envelope["mp_payload"]; ok {
			v := strings.TrimSpace(string(wrapped))
			if v == "" || v == "null" {
				return nil, errors.New("mp_payload cannot be empty")
			}
			return wrapped, nil
		}
	}

	return json.RawMessage(raw), nil
}

func mapBudgetPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidCompanyID), errors.Is(err, usecase.ErrInvalidBudgetID),
		errors.Is(err, usecase.ErrInvalidMPPayload), errors.Is(err, usecase.ErrPaymentGatewayBadRequest):
		return errInvalidRequest
	case errors.Is(err, usecase.ErrPaymentGatewayCustomerNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_CUSTOMER_NOT_FOUND", "Payer not found for this Mercado Pago test context", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayInvalidUsers):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_INVALID_USERS", "Invalid users involved between seller token and payer test user", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayUnauthorized):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_UNAUTHORIZED", "Payment provider unauthorized", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrPaymentGatewayNotConfigured):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_UNAVAILABLE", "Payment provider not configured", http.StatusServiceUnavailable)
	case errors.Is(err, usecase.ErrBudgetNotFound):
		return pkg.NewDomainErrorSimple("BUDGET_NOT_FOUND", "Budget not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrBudgetNotApproved):
		return pkg.NewDomainErrorSimple("BUDGET_NOT_APPROVED", "Budget not approved", http.StatusConflict)
	case errors.Is(err, usecase.ErrBudgetPaymentNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
	default:
		return internalError(err)
	}
}
