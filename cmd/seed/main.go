package main

import (
	"context"
	"os"

	"orcamentos/internal/adapter/persistence"
	"orcamentos/internal/config"
	"orcamentos/internal/infrastructure/logger"
	"orcamentos/internal/seed"
	"orcamentos/internal/usecase"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[seed][main] invalid configuration")
	}

	logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
		Output:      os.Stdout,
	})

	ctx := context.Background()
	repos, closeStorage, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("[seed][main] failed to open storage")
	}
	defer closeStorage()

	companies := usecase.NewCompanyUseCase(repos.Companies)
	templates := usecase.NewTemplateUseCase(repos.Templates, repos.Companies)

	stats, err := seed.Run(ctx, companies, templates)
	if err != nil {
		log.Error().Err(err).Msg("[seed][main] seed failed")
		closeStorage()
		os.Exit(1)
	}
	log.Info().Int("inserts", stats.Inserts).Msg("[seed][main] completed")
}
