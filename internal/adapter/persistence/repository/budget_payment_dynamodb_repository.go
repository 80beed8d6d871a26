package repository

import (
	"context"
	"fmt"
	"sort"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	defaultBudgetPaymentsTableName = "budget_payments"
	paymentsBudgetIDIndex          = "budget_id-index"
)

func budgetPaymentsTableName() string {
	return getenvDefault("PAYMENTS_TABLE", defaultBudgetPaymentsTableName)
}

type budgetPaymentItem struct {
	ID           string                 `dynamodbav:"id"`
	BudgetID     string                 `dynamodbav:"budget_id"`
	CompanyID    string                 `dynamodbav:"company_id"`
	Amount       string                 `dynamodbav:"amount"`
	Date         string                 `dynamodbav:"date"`
	Status       string                 `dynamodbav:"status"`
	MPPayload    map[string]interface{} `dynamodbav:"mp_payload,omitempty"`
	MPPayloadRaw string                 `dynamodbav:"mp_payload_raw,omitempty"`
}

// BudgetPaymentDynamoRepository persists BudgetPayment entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: budget_id-index (PK: budget_id)
type BudgetPaymentDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.IBudgetPaymentRepository = (*BudgetPaymentDynamoRepository)(nil)

func NewBudgetPaymentDynamoRepository(ddb *dynamodb.Client) *BudgetPaymentDynamoRepository {
	return &BudgetPaymentDynamoRepository{ddb: ddb, tableName: budgetPaymentsTableName()}
}

func (r *BudgetPaymentDynamoRepository) Create(ctx context.Context, p entities.BudgetPayment) (entities.BudgetPayment, error) {
	av, err := attributevalue.MarshalMap(toBudgetPaymentItem(p))
	if err != nil {
		return entities.BudgetPayment{}, err
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
		return entities.BudgetPayment{}, fmt.Errorf("put budget payment: %w", err)
	}
	return p, nil
}

func (r *BudgetPaymentDynamoRepository) GetByID(ctx context.Context, id string) (entities.BudgetPayment, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            stringKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.BudgetPayment{}, err
	}
	if len(out.Item) == 0 {
		return entities.BudgetPayment{}, nil
	}

	var it budgetPaymentItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.BudgetPayment{}, err
	}
	return fromBudgetPaymentItem(it), nil
}

// ListByBudgetID returns the payments of a budget, oldest first.
func (r *BudgetPaymentDynamoRepository) ListByBudgetID(ctx context.Context, budgetID string) ([]entities.BudgetPayment, error) {
	rows, err := queryIndex[budgetPaymentItem](ctx, r.ddb, r.tableName, paymentsBudgetIDIndex, "budget_id", budgetID, false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	items := make([]entities.BudgetPayment, 0, len(rows))
	for _, it := range rows {
		items = append(items, fromBudgetPaymentItem(it))
	}
	return items, nil
}

func toBudgetPaymentItem(p entities.BudgetPayment) budgetPaymentItem {
	return budgetPaymentItem{
		ID:           p.ID,
		BudgetID:     p.BudgetID,
		CompanyID:    p.CompanyID,
		Amount:       moneyToString(p.Amount),
		Date:         formatTime(p.Date),
		Status:       string(p.Status),
		MPPayload:    p.MPPayload,
		MPPayloadRaw: string(p.MPPayloadRaw),
	}
}

func fromBudgetPaymentItem(it budgetPaymentItem) entities.BudgetPayment {
	return entities.BudgetPayment{
		ID:           it.ID,
		BudgetID:     it.BudgetID,
		CompanyID:    it.CompanyID,
		Amount:       parseMoney(it.Amount),
		Date:         parseTime(it.Date),
		Status:       entities.PaymentStatus(it.Status),
		MPPayload:    it.MPPayload,
		MPPayloadRaw: []byte(it.MPPayloadRaw),
	}
}
