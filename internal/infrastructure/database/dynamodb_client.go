package database

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
)

// DynamoDBConfig holds the connection settings of the DynamoDB client.
//
// Supported env vars (local-friendly):
//   - AWS_REGION (default: us-east-1)
//   - AWS_ACCESS_KEY_ID (default: local)
//   - AWS_SECRET_ACCESS_KEY (default: local)
//   - DYNAMODB_ENDPOINT (optional; e.g. http://dynamodb:8000)
//   - DYNAMODB_AUTO_CREATE_TABLES (optional; creates missing tables on start)
type DynamoDBConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	AutoCreateTables bool
}

func DynamoDBConfigFromEnv() DynamoDBConfig {
	return DynamoDBConfig{
		Region:           getenvDefault("AWS_REGION", "us-east-1"),
		AccessKeyID:      getenvDefault("AWS_ACCESS_KEY_ID", "local"),
		SecretAccessKey:  getenvDefault("AWS_SECRET_ACCESS_KEY", "local"),
		Endpoint:         os.Getenv("DYNAMODB_ENDPOINT"),
		AutoCreateTables: isTruthy(os.Getenv("DYNAMODB_AUTO_CREATE_TABLES")),
	}
}

// ConnectDynamoDB creates a DynamoDB client. When an endpoint is configured
// (DynamoDB Local) it is used as the base endpoint of every request.
func ConnectDynamoDB(ctx context.Context, c DynamoDBConfig) (*dynamodb.Client, error) {
	// Local DynamoDB does not validate credentials, but the AWS SDK requires them.
	creds := credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})
	log.Info().
		Str("region", c.Region).
		Str("endpoint", c.Endpoint).
		Msg("[database][dynamodb] client initialized")
	return client, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}
