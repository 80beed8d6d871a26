package main

import (
	"context"
	"os"

	"orcamentos/internal/adapter/http/routes"
	"orcamentos/internal/config"
	"orcamentos/internal/infrastructure/logger"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

// @title           Orçamentos API
// @version         1.0
// @description     Budget (orçamento) service: templates, pricing strategies and Mercado Pago payments.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[api][main] invalid configuration")
	}

	logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
		Output:      os.Stdout,
	})

	if err := routes.Run(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("[api][main] server stopped")
	}
}
