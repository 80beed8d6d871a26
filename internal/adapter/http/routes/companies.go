package routes

import (
	"orcamentos/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathCompanies = "/companies"
	PathTemplates = "/templates"
	PathBudgets   = "/budgets"
)

func addCompanyRoutes(
	rg *gin.RouterGroup,
	companyHandler *handlers.CompanyHandler,
	templateHandler *handlers.TemplateHandler,
	budgetHandler *handlers.BudgetHandler,
	paymentHandler *handlers.BudgetPaymentHandler,
) {
	companies := rg.Group(PathCompanies)
	{
		companies.POST("", companyHandler.CreateCompany)
		companies.GET("/:company_id", companyHandler.GetCompany)
		companies.PATCH("/:company_id/settings", companyHandler.UpdateSettings)
	}

	company := companies.Group("/:company_id")

	templates := company.Group(PathTemplates)
	{
		templates.POST("", templateHandler.CreateTemplate)
		templates.GET("", templateHandler.ListTemplates)
		templates.GET("/:template_id", templateHandler.GetTemplate)
		templates.PUT("/:template_id", templateHandler.UpdateTemplate)
		templates.DELETE("/:template_id", templateHandler.DeleteTemplate)
	}

	budgets := company.Group(PathBudgets)
	{
		budgets.POST("", budgetHandler.CreateBudget)
		budgets.GET("", budgetHandler.ListBudgets)
		budgets.GET("/stats", budgetHandler.GetBudgetStats)
		budgets.POST("/calculate", budgetHandler.CalculateBudget)
		budgets.POST("/validate", budgetHandler.ValidateBudget)
		budgets.GET("/:budget_id", budgetHandler.GetBudget)
		budgets.PUT("/:budget_id", budgetHandler.UpdateBudget)
		budgets.DELETE("/:budget_id", budgetHandler.DeleteBudget)
		budgets.POST("/:budget_id/duplicate", budgetHandler.DuplicateBudget)
		budgets.PATCH("/:budget_id/status", budgetHandler.UpdateBudgetStatus)
		budgets.POST("/:budget_id/payments", paymentHandler.CreatePayment)
		budgets.GET("/:budget_id/payments", paymentHandler.ListPayments)
	}
}
