package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	defaultCompaniesTableName = "companies"
	companiesEmailIndex       = "email-index"
)

func companiesTableName() string {
	return getenvDefault("COMPANIES_TABLE", defaultCompaniesTableName)
}

type companyItem struct {
	ID        string `dynamodbav:"id"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email"`
	Document  string `dynamodbav:"document,omitempty"`
	Settings  string `dynamodbav:"settings"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// CompanyDynamoRepository persists Company entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: email-index (PK: email)
//
// Settings are stored as a JSON document so unset rates stay unset.
type CompanyDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.ICompanyRepository = (*CompanyDynamoRepository)(nil)

func NewCompanyDynamoRepository(ddb *dynamodb.Client) *CompanyDynamoRepository {
	return &CompanyDynamoRepository{ddb: ddb, tableName: companiesTableName()}
}

func (r *CompanyDynamoRepository) Create(ctx context.Context, c entities.Company) (entities.Company, error) {
	it, err := toCompanyItem(c)
	if err != nil {
		return entities.Company{}, err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Company{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		return entities.Company{}, fmt.Errorf("put company: %w", err)
	}
	return c, nil
}

func (r *CompanyDynamoRepository) GetByID(ctx context.Context, id string) (entities.Company, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            stringKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Company{}, err
	}
	if len(out.Item) == 0 {
		return entities.Company{}, nil
	}

	var it companyItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Company{}, err
	}
	return fromCompanyItem(it)
}

func (r *CompanyDynamoRepository) GetByEmail(ctx context.Context, email string) (entities.Company, error) {
	rows, err := queryIndex[companyItem](ctx, r.ddb, r.tableName, companiesEmailIndex, "email", email, false)
	if err != nil {
		return entities.Company{}, err
	}
	if len(rows) == 0 {
		return entities.Company{}, nil
	}
	return fromCompanyItem(rows[0])
}

// Update overwrites the stored company; a missing id yields a zero Company.
func (r *CompanyDynamoRepository) Update(ctx context.Context, c entities.Company) (entities.Company, error) {
	it, err := toCompanyItem(c)
	if err != nil {
		return entities.Company{}, err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Company{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return entities.Company{}, nil
		}
		return entities.Company{}, err
	}
	return c, nil
}

func toCompanyItem(c entities.Company) (companyItem, error) {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return companyItem{}, fmt.Errorf("encode company settings: %w", err)
	}
	return companyItem{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Document:  c.Document,
		Settings:  string(settings),
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}, nil
}

func fromCompanyItem(it companyItem) (entities.Company, error) {
	c := entities.Company{
		ID:        it.ID,
		Name:      it.Name,
		Email:     it.Email,
		Document:  it.Document,
		CreatedAt: parseTime(it.CreatedAt),
		UpdatedAt: parseTime(it.UpdatedAt),
	}
	if it.Settings != "" {
		if err := json.Unmarshal([]byte(it.Settings), &c.Settings); err != nil {
			return entities.Company{}, fmt.Errorf("decode company settings: %w", err)
		}
	}
	return c, nil
}
