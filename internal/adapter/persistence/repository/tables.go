package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

type tableSpec struct {
	name    string
	indexes []indexSpec
}

type indexSpec struct {
	name    string
	hashKey string
	sortKey string
}

func tableSpecs() []tableSpec {
	return []tableSpec{
		{name: companiesTableName(), indexes: []indexSpec{{name: companiesEmailIndex, hashKey: "email"}}},
		{name: templatesTableName(), indexes: []indexSpec{{name: templatesCompanyIndex, hashKey: "company_id", sortKey: "created_at"}}},
		{name: budgetsTableName(), indexes: []indexSpec{{name: budgetsCompanyIndex, hashKey: "company_id", sortKey: "created_at"}}},
		{name: budgetItemsTableName(), indexes: []indexSpec{{name: budgetItemsBudgetIndex, hashKey: "budget_id"}}},
		{name: budgetPaymentsTableName(), indexes: []indexSpec{{name: paymentsBudgetIDIndex, hashKey: "budget_id"}}},
	}
}

// EnsureTables creates the missing tables (PAY_PER_REQUEST) with their GSIs.
// Meant for DynamoDB Local and first deploys.
func EnsureTables(ctx context.Context, ddb *dynamodb.Client) error {
	for _, spec := range tableSpecs() {
		_, err := ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)})
		if err == nil {
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return fmt.Errorf("describe table %s: %w", spec.name, err)
		}

		if _, err := ddb.CreateTable(ctx, spec.createInput()); err != nil {
			return fmt.Errorf("create table %s: %w", spec.name, err)
		}
		waiter := dynamodb.NewTableExistsWaiter(ddb)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait table %s: %w", spec.name, err)
		}
		log.Info().Str("table", spec.name).Msg("[persistence][dynamodb] table created")
	}
	return nil
}

func (s tableSpec) createInput() *dynamodb.CreateTableInput {
	attrs := map[string]bool{"id": true}
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	}
	for _, idx := range s.indexes {
		keys := []types.KeySchemaElement{{AttributeName: aws.String(idx.hashKey), KeyType: types.KeyTypeHash}}
		attrs[idx.hashKey] = true
		if idx.sortKey != "" {
			keys = append(keys, types.KeySchemaElement{AttributeName: aws.String(idx.sortKey), KeyType: types.KeyTypeRange})
			attrs[idx.sortKey] = true
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.name),
			KeySchema:  keys,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	for _, name := range []string{"id", "email", "company_id", "budget_id", "created_at"} {
		if attrs[name] {
			in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
				AttributeName: aws.String(name),
				AttributeType: types.ScalarAttributeTypeS,
			})
		}
	}
	return in
}
