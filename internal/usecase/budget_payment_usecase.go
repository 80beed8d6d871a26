package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"
)

var (
	ErrBudgetPaymentNotFound          = errors.New("budget payment not found")
	ErrInvalidPaymentID               = errors.New("invalid payment id")
	ErrInvalidMPPayload               = errors.New("invalid mercado pago payload")
	ErrBudgetNotApproved              = errors.New("budget not approved")
	ErrPaymentGatewayNotConfigured    = errors.New("payment gateway not configured")
	ErrPaymentGatewayBadRequest       = errors.New("payment gateway bad request")
	ErrPaymentGatewayUnauthorized     = errors.New("payment gateway unauthorized")
	ErrPaymentGatewayInvalidUsers     = errors.New("payment gateway invalid users involved")
	ErrPaymentGatewayCustomerNotFound = errors.New("payment gateway customer not found")
)

// PaymentOptions configures payload handling for Mercado Pago.
//
// In Mock mode payloads are not required to carry a payment method or a
// payer. AccessToken, TestPayerEmail and TestPayerUserID drive the sandbox
// payer fallbacks.
type PaymentOptions struct {
	Mock            bool
	AccessToken     string
	TestPayerEmail  string
	TestPayerUserID string
}

// IBudgetPaymentUseCase charges approved budgets through the payment gateway.
type IBudgetPaymentUseCase interface {
	CreateAndApprove(ctx context.Context, companyID, budgetID string, mpPayload json.RawMessage) (entities.BudgetPayment, error)
	GetByID(ctx context.Context, id string) (entities.BudgetPayment, error)
	ListByBudgetID(ctx context.Context, companyID, budgetID string) ([]entities.BudgetPayment, error)
}

type BudgetPaymentUseCase struct {
	repo    interfaces.IBudgetPaymentRepository
	budgets interfaces.IBudgetRepository
	gateway interfaces.IPaymentGateway
	opts    PaymentOptions
	now     func() time.Time
}

var _ IBudgetPaymentUseCase = (*BudgetPaymentUseCase)(nil)

func NewBudgetPaymentUseCase(repo interfaces.IBudgetPaymentRepository, budgets interfaces.IBudgetRepository, gateway interfaces.IPaymentGateway, opts PaymentOptions) *BudgetPaymentUseCase {
	return &BudgetPaymentUseCase{repo: repo, budgets: budgets, gateway: gateway, opts: opts, now: time.Now}
}

// CreateAndApprove sends a payment for the budget total and persists the
// provider response. The amount always comes from the stored budget.
func (u *BudgetPaymentUseCase) CreateAndApprove(ctx context.Context, companyID, budgetID string, mpPayload json.RawMessage) (entities.BudgetPayment, error) {
	companyID = strings.TrimSpace(companyID)
	budgetID = strings.TrimSpace(budgetID)
	logger := log.With().Str("company_id", companyID).Str("budget_id", budgetID).Logger()
	logger.Info().Int("payload_len", len(mpPayload)).Msg("[payment][usecase] create-and-approve start")

	if companyID == "" {
		return entities.BudgetPayment{}, ErrInvalidCompanyID
	}
	if budgetID == "" {
		return entities.BudgetPayment{}, ErrInvalidBudgetID
	}
	if len(mpPayload) == 0 || !json.Valid(mpPayload) {
		if !u.opts.Mock {
			logger.Info().Msg("[payment][usecase] invalid payload")
			return entities.BudgetPayment{}, ErrInvalidMPPayload
		}
		mpPayload = json.RawMessage("{}")
	}
	if u.gateway == nil {
		return entities.BudgetPayment{}, ErrPaymentGatewayNotConfigured
	}

	budget, err := u.budgets.GetByID(ctx, companyID, budgetID)
	if err != nil {
		logger.Error().Err(err).Msg("[payment][usecase] failed loading budget")
		return entities.BudgetPayment{}, err
	}
	if budget.ID == "" {
		return entities.BudgetPayment{}, ErrBudgetNotFound
	}
	if budget.Status != entities.BudgetStatusApproved {
		logger.Info().Str("status", string(budget.Status)).Msg("[payment][usecase] budget not approved")
		return entities.BudgetPayment{}, ErrBudgetNotApproved
	}

	var reqMap map[string]any
	if err := json.Unmarshal(mpPayload, &reqMap); err == nil {
		if !u.opts.Mock {
			if !hasNonEmptyString(reqMap, "payment_method_id") {
				logger.Info().Msg("[payment][usecase] missing payment_method_id")
				return entities.BudgetPayment{}, ErrInvalidMPPayload
			}
			u.normalizeSandboxPayerFromUserID(reqMap)
			u.ensurePayerDefaults(reqMap)
			if !hasPayer(reqMap) {
				logger.Info().Msg("[payment][usecase] missing/invalid payer")
				return entities.BudgetPayment{}, ErrInvalidMPPayload
			}
		}

		// Mercado Pago uses external_reference to reconcile events.
		if _, ok := reqMap["external_reference"]; !ok {
			reqMap["external_reference"] = budget.ID
		}
		if _, ok := reqMap["description"]; !ok {
			reqMap["description"] = fmt.Sprintf("Orçamento %s", budget.Title)
		}
		reqMap["transaction_amount"] = budget.TotalAmount
		if b, err := json.Marshal(reqMap); err == nil {
			mpPayload = b
		}
	} else {
		logger.Warn().Err(err).Msg("[payment][usecase] payload is not an object; sent as-is")
	}

	providerPaymentID, providerStatus, providerResp, err := u.gateway.CreatePayment(ctx, mpPayload)
	if err != nil {
		logger.Error().Err(err).Msg("[payment][usecase] payment gateway failed")
		switch {
		case isGatewayCustomerNotFound(err):
			return entities.BudgetPayment{}, ErrPaymentGatewayCustomerNotFound
		case isGatewayInvalidUsers(err):
			return entities.BudgetPayment{}, ErrPaymentGatewayInvalidUsers
		case isGatewayUnauthorized(err):
			return entities.BudgetPayment{}, ErrPaymentGatewayUnauthorized
		case isGatewayBadRequest(err):
			return entities.BudgetPayment{}, ErrPaymentGatewayBadRequest
		}
		return entities.BudgetPayment{}, err
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(providerResp, &parsed); err != nil {
		logger.Warn().Err(err).Msg("[payment][usecase] provider response unmarshal failed")
	}

	p := entities.BudgetPayment{
		ID:           providerPaymentID,
		BudgetID:     budget.ID,
		CompanyID:    budget.CompanyID,
		Amount:       budget.TotalAmount,
		Date:         u.now().UTC(),
		Status:       paymentStatusFromProvider(providerStatus),
		MPPayloadRaw: providerResp,
		MPPayload:    parsed,
	}

	created, err := u.repo.Create(ctx, p)
	if err != nil {
		logger.Error().Err(err).Str("payment_id", p.ID).Msg("[payment][usecase] payment repository create failed")
		return entities.BudgetPayment{}, err
	}
	logger.Info().
		Str("payment_id", created.ID).
		Str("status", string(created.Status)).
		Msg("[payment][usecase] create-and-approve success")
	return created, nil
}

func (u *BudgetPaymentUseCase) GetByID(ctx context.Context, id string) (entities.BudgetPayment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.BudgetPayment{}, ErrInvalidPaymentID
	}

	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.BudgetPayment{}, err
	}
	if p.ID == "" {
		return entities.BudgetPayment{}, ErrBudgetPaymentNotFound
	}
	return p, nil
}

// ListByBudgetID lists the payments of a budget owned by companyID.
func (u *BudgetPaymentUseCase) ListByBudgetID(ctx context.Context, companyID, budgetID string) ([]entities.BudgetPayment, error) {
	companyID = strings.TrimSpace(companyID)
	budgetID = strings.TrimSpace(budgetID)
	if companyID == "" {
		return nil, ErrInvalidCompanyID
	}
	if budgetID == "" {
		return nil, ErrInvalidBudgetID
	}

	budget, err := u.budgets.GetByID(ctx, companyID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.ID == "" {
		return nil, ErrBudgetNotFound
	}
	return u.repo.ListByBudgetID(ctx, budgetID)
}

func paymentStatusFromProvider(status string) entities.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "authorized":
		return entities.PaymentStatusAprovado
	case "rejected", "cancelled", "refunded", "charged_back":
		return entities.PaymentStatusNegado
	default:
		return entities.PaymentStatusPendente
	}
}

func hasNonEmptyString(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(s) != ""
}

func hasPayer(m map[string]any) bool {
	v, ok := m["payer"]
	if !ok {
		return false
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return false
	}
	return hasNonEmptyString(payer, "email") || hasPayerID(payer)
}

func hasPayerID(payer map[string]any) bool {
	v, ok := payer["id"]
	if !ok || v == nil {
		return false
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	return s != "" && s != "<nil>"
}

func (u *BudgetPaymentUseCase) sandbox() bool {
	return strings.HasPrefix(strings.TrimSpace(u.opts.AccessToken), "TEST-")
}

func (u *BudgetPaymentUseCase) ensurePayerDefaults(m map[string]any) {
	v, ok := m["payer"]
	if !ok || v == nil {
		v = map[string]any{}
		m["payer"] = v
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return
	}

	if _, ok := payer["type"]; !ok {
		payer["type"] = "customer"
	}

	// Either payer.id or payer.email may be used; email is filled only when
	// both are missing.
	if !hasPayerID(payer) && !hasNonEmptyString(payer, "email") {
		if email := strings.TrimSpace(u.opts.TestPayerEmail); email != "" {
			payer["email"] = email
		} else if u.sandbox() {
			payer["email"] = "test_user_br@testuser.com"
		}
	}
}

// normalizeSandboxPayerFromUserID swaps the configured sandbox user id for its
// e-mail, which is what the sandbox accepts.
func (u *BudgetPaymentUseCase) normalizeSandboxPayerFromUserID(m map[string]any) {
	v, ok := m["payer"]
	if !ok || v == nil {
		return
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return
	}
	if !hasPayerID(payer) || hasNonEmptyString(payer, "email") || !u.sandbox() {
		return
	}

	userID := strings.TrimSpace(u.opts.TestPayerUserID)
	email := strings.TrimSpace(u.opts.TestPayerEmail)
	if userID == "" || email == "" {
		return
	}
	if strings.TrimSpace(fmt.Sprintf("%v", payer["id"])) != userID {
		return
	}

	payer["email"] = email
	delete(payer, "id")
	log.Debug().Msg("[payment][usecase] mapped sandbox payer user_id to payer.email")
}

func isGatewayBadRequest(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "\"error\":\"bad_request\"") || strings.Contains(msg, "\"status\":400")
}

func isGatewayUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "\"error\":\"unauthorized\"") || strings.Contains(msg, "\"status\":401")
}

func isGatewayInvalidUsers(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid users involved") || strings.Contains(msg, "\"code\":2034")
}

func isGatewayCustomerNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "customer not found") || strings.Contains(msg, "\"code\":2002")
}
