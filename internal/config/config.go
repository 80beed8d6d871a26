package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultPort       = "8080"
	defaultSQLitePath = "./orcamentos.db"
	defaultEnv        = "development"
	serviceName       = "orcamentos"
)

var ErrUnknownStorageDriver = errors.New("unknown storage driver")

// Config holds application configuration sourced from environment variables.
// DynamoDB table names and AWS settings are read by the DynamoDB adapter.
type Config struct {
	Port        string
	Environment string
	ServiceName string
	LogLevel    string
	Storage     StorageConfig
	Payments    PaymentsConfig
}

type StorageConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

type PaymentsConfig struct {
	AccessToken     string
	Mock            bool
	TestPayerEmail  string
	TestPayerUserID string
}

// Load reads the environment. .env files are loaded by the binaries through
// godotenv/autoload before Load runs.
func Load() (Config, error) {
	cfg := Config{
		Port:        getenvDefault("PORT", defaultPort),
		Environment: getenvDefault("APP_ENV", defaultEnv),
		ServiceName: serviceName,
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getenvDefault("STORAGE_DRIVER", DriverDynamoDB)),
			SQLitePath:  getenvDefault("SQLITE_PATH", defaultSQLitePath),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Payments: PaymentsConfig{
			AccessToken:     strings.TrimSpace(os.Getenv("MERCADOPAGO_ACCESS_TOKEN")),
			Mock:            paymentMockEnabled(),
			TestPayerEmail:  strings.TrimSpace(os.Getenv("MERCADOPAGO_TEST_PAYER_EMAIL")),
			TestPayerUserID: strings.TrimSpace(os.Getenv("MERCADOPAGO_TEST_PAYER_USER_ID")),
		},
	}

	switch cfg.Storage.Driver {
	case DriverDynamoDB, DriverSQLite:
	case DriverPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownStorageDriver, cfg.Storage.Driver)
	}
	return cfg, nil
}

// Production reports whether the service runs in a production environment.
func (c Config) Production() bool {
	switch strings.ToLower(c.Environment) {
	case "production", "prod":
		return true
	}
	return false
}

func paymentMockEnabled() bool {
	for _, key := range []string{"PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK"} {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on", "mock":
			return true
		}
	}
	return false
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
