package routes

import (
	"context"
	"fmt"

	_ "orcamentos/docs"
	"orcamentos/internal/adapter/http/handlers"
	"orcamentos/internal/adapter/persistence"
	"orcamentos/internal/calculation"
	"orcamentos/internal/config"
	"orcamentos/internal/infrastructure/payments"
	"orcamentos/internal/usecase"
	"orcamentos/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var router = gin.Default()

// Run wires storage, use cases and handlers, then starts the server.
func Run(ctx context.Context, cfg config.Config) error {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	setMiddlewares()

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	closeStorage, err := getRoutes(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	log.Info().Str("port", cfg.Port).Msg("[http][routes] server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		return fmt.Errorf("failed to startup the application: %w", err)
	}
	return nil
}

func getRoutes(ctx context.Context, cfg config.Config) (func() error, error) {
	repos, closeStorage, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	engine := calculation.NewEngine(repos.Companies, log.Logger)

	companyUseCase := usecase.NewCompanyUseCase(repos.Companies)
	templateUseCase := usecase.NewTemplateUseCase(repos.Templates, repos.Companies)
	budgetUseCase := usecase.NewBudgetUseCase(repos.Budgets, repos.Templates, engine)

	var paymentGateway interfaces.IPaymentGateway
	mpGateway, err := payments.NewMercadoPagoGateway(cfg.Payments.AccessToken, cfg.Payments.Mock)
	if err != nil {
		log.Warn().Err(err).Msg("[http][routes] Mercado Pago gateway not configured")
	} else {
		paymentGateway = mpGateway
	}
	paymentUseCase := usecase.NewBudgetPaymentUseCase(repos.Payments, repos.Budgets, paymentGateway, usecase.PaymentOptions{
		Mock:            cfg.Payments.Mock,
		AccessToken:     cfg.Payments.AccessToken,
		TestPayerEmail:  cfg.Payments.TestPayerEmail,
		TestPayerUserID: cfg.Payments.TestPayerUserID,
	})

	companyHandler := handlers.NewCompanyHandler(companyUseCase)
	templateHandler := handlers.NewTemplateHandler(templateUseCase)
	budgetHandler := handlers.NewBudgetHandler(budgetUseCase)
	paymentHandler := handlers.NewBudgetPaymentHandler(paymentUseCase, cfg.Payments.Mock)

	v1 := router.Group("/v1")
	addPingRoutes(v1)
	v1.GET("/strategies", budgetHandler.ListStrategies)
	addCompanyRoutes(v1, companyHandler, templateHandler, budgetHandler, paymentHandler)

	return closeStorage, nil
}

func setMiddlewares() {
	router.Use(requestID())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().Interface("panic", recovered).Str("request_id", c.GetString(requestIDKey)).Msg("[http][routes] recovered from panic")
		c.AbortWithStatus(500)
	}))
}
