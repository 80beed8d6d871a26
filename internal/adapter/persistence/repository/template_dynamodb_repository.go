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
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultTemplatesTableName = "templates"
	templatesCompanyIndex     = "company_id-index"
)

func templatesTableName() string {
	return getenvDefault("TEMPLATES_TABLE", defaultTemplatesTableName)
}

type templateItem struct {
	ID               string `dynamodbav:"id"`
	CompanyID        string `dynamodbav:"company_id"`
	Name             string `dynamodbav:"name"`
	Description      string `dynamodbav:"description,omitempty"`
	Active           bool   `dynamodbav:"is_active"`
	CalculationRules string `dynamodbav:"calculation_rules"`
	Categories       string `dynamodbav:"categories"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
}

// TemplateDynamoRepository persists Template entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: company_id-index (PK: company_id, SK: created_at)
//
// Categories and fields are kept inside the template row as JSON.
type TemplateDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.ITemplateRepository = (*TemplateDynamoRepository)(nil)

func NewTemplateDynamoRepository(ddb *dynamodb.Client) *TemplateDynamoRepository {
	return &TemplateDynamoRepository{ddb: ddb, tableName: templatesTableName()}
}

func (r *TemplateDynamoRepository) Create(ctx context.Context, t entities.Template) (entities.Template, error) {
	if err := r.put(ctx, t, "attribute_not_exists(#id)", nil); err != nil {
		return entities.Template{}, fmt.Errorf("put template: %w", err)
	}
	return t, nil
}

func (r *TemplateDynamoRepository) GetByID(ctx context.Context, companyID, id string) (entities.Template, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            stringKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Template{}, err
	}
	if len(out.Item) == 0 {
		return entities.Template{}, nil
	}

	var it templateItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Template{}, err
	}
	if it.CompanyID != companyID {
		return entities.Template{}, nil
	}
	return fromTemplateItem(it)
}

// List filters the company partition in memory: DynamoDB cannot search by
// substring on a key.
func (r *TemplateDynamoRepository) List(ctx context.Context, companyID string, filter entities.TemplateFilter) ([]entities.Template, int, error) {
	rows, err := queryIndex[templateItem](ctx, r.ddb, r.tableName, templatesCompanyIndex, "company_id", companyID, true)
	if err != nil {
		return nil, 0, err
	}
	sortNewestFirst(rows, func(it templateItem) string { return it.CreatedAt }, func(it templateItem) string { return it.ID })

	matches := make([]templateItem, 0, len(rows))
	for _, it := range rows {
		if filter.Active != nil && it.Active != *filter.Active {
			continue
		}
		if !containsFold(it.Name, filter.Search) {
			continue
		}
		matches = append(matches, it)
	}

	page := paginate(matches, filter.Page, filter.Limit)
	out := make([]entities.Template, 0, len(page))
	for _, it := range page {
		t, err := fromTemplateItem(it)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, len(matches), nil
}

// Update overwrites the template row; a missing or foreign id yields a zero
// Template.
func (r *TemplateDynamoRepository) Update(ctx context.Context, t entities.Template) (entities.Template, error) {
	err := r.put(ctx, t, "attribute_exists(#id) AND #company_id = :company_id", map[string]types.AttributeValue{
		":company_id": &types.AttributeValueMemberS{Value: t.CompanyID},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return entities.Template{}, nil
		}
		return entities.Template{}, err
	}
	return t, nil
}

func (r *TemplateDynamoRepository) Delete(ctx context.Context, companyID, id string) error {
	_, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 stringKey(id),
		ConditionExpression: aws.String("#company_id = :company_id"),
		ExpressionAttributeNames: map[string]string{
			"#company_id": "company_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":company_id": &types.AttributeValueMemberS{Value: companyID},
		},
	})
	if err != nil && !isConditionalCheckFailed(err) {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (r *TemplateDynamoRepository) put(ctx context.Context, t entities.Template, condition string, values map[string]types.AttributeValue) error {
	it, err := toTemplateItem(t)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}
	names := map[string]string{"#id": "id"}
	if values != nil {
		names["#company_id"] = "company_id"
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func toTemplateItem(t entities.Template) (templateItem, error) {
	rules, err := json.Marshal(t.CalculationRules)
	if err != nil {
		return templateItem{}, fmt.Errorf("encode calculation rules: %w", err)
	}
	categories, err := json.Marshal(t.Categories)
	if err != nil {
		return templateItem{}, fmt.Errorf("encode categories: %w", err)
	}
	return templateItem{
		ID:               t.ID,
		CompanyID:        t.CompanyID,
		Name:             t.Name,
		Description:      t.Description,
		Active:           t.Active,
		CalculationRules: string(rules),
		Categories:       string(categories),
		CreatedAt:        formatTime(t.CreatedAt),
		UpdatedAt:        formatTime(t.UpdatedAt),
	}, nil
}

func fromTemplateItem(it templateItem) (entities.Template, error) {
	t := entities.Template{
		ID:          it.ID,
		CompanyID:   it.CompanyID,
		Name:        it.Name,
		Description: it.Description,
		Active:      it.Active,
		CreatedAt:   parseTime(it.CreatedAt),
		UpdatedAt:   parseTime(it.UpdatedAt),
	}
	if it.CalculationRules != "" {
		if err := json.Unmarshal([]byte(it.CalculationRules), &t.CalculationRules); err != nil {
			return entities.Template{}, fmt.Errorf("decode calculation rules: %w", err)
		}
	}
	if it.Categories != "" {
		if err := json.Unmarshal([]byte(it.Categories), &t.Categories); err != nil {
			return entities.Template{}, fmt.Errorf("decode categories: %w", err)
		}
	}
	return t, nil
}
