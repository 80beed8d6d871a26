package persistence

import (
	"context"
	"fmt"

	"orcamentos/internal/adapter/persistence/repository"
	"orcamentos/internal/adapter/persistence/sqlstore"
	"orcamentos/internal/config"
	"orcamentos/internal/infrastructure/database"
	"orcamentos/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
)

// Repositories groups the storage adapters of one backend.
type Repositories struct {
	Companies interfaces.ICompanyRepository
	Templates interfaces.ITemplateRepository
	Budgets   interfaces.IBudgetRepository
	Payments  interfaces.IBudgetPaymentRepository
}

// Open builds the repositories for the configured storage driver. The
// returned close func releases the underlying connections.
func Open(ctx context.Context, cfg config.StorageConfig) (Repositories, func() error, error) {
	switch cfg.Driver {
	case config.DriverDynamoDB:
		return openDynamoDB(ctx, database.DynamoDBConfigFromEnv())
	case config.DriverSQLite:
		db, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return Repositories{}, nil, err
		}
		return openSQL(db)
	case config.DriverPostgres:
		db, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return Repositories{}, nil, err
		}
		return openSQL(db)
	default:
		return Repositories{}, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, cfg.Driver)
	}
}

func openDynamoDB(ctx context.Context, c database.DynamoDBConfig) (Repositories, func() error, error) {
	ddb, err := database.ConnectDynamoDB(ctx, c)
	if err != nil {
		return Repositories{}, nil, err
	}
	if c.AutoCreateTables {
		if err := repository.EnsureTables(ctx, ddb); err != nil {
			return Repositories{}, nil, err
		}
	}
	log.Info().Str("driver", config.DriverDynamoDB).Msg("[persistence] storage ready")

	return Repositories{
		Companies: repository.NewCompanyDynamoRepository(ddb),
		Templates: repository.NewTemplateDynamoRepository(ddb),
		Budgets:   repository.NewBudgetDynamoRepository(ddb),
		Payments:  repository.NewBudgetPaymentDynamoRepository(ddb),
	}, func() error { return nil }, nil
}

func openSQL(db *sqlstore.DB) (Repositories, func() error, error) {
	if err := sqlstore.Migrate(db); err != nil {
		db.Close()
		return Repositories{}, nil, err
	}
	log.Info().Str("dialect", db.Dialect()).Msg("[persistence] storage ready")

	return Repositories{
		Companies: sqlstore.NewCompanyRepository(db),
		Templates: sqlstore.NewTemplateRepository(db),
		Budgets:   sqlstore.NewBudgetRepository(db),
		Payments:  sqlstore.NewBudgetPaymentRepository(db),
	}, db.Close, nil
}
