package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultBudgetsTableName     = "budgets"
	defaultBudgetItemsTableName = "budget_items"
	budgetsCompanyIndex         = "company_id-index"
	budgetItemsBudgetIndex      = "budget_id-index"
)

func budgetsTableName() string {
	return getenvDefault("BUDGETS_TABLE", defaultBudgetsTableName)
}

func budgetItemsTableName() string {
	return getenvDefault("BUDGET_ITEMS_TABLE", defaultBudgetItemsTableName)
}

type budgetItem struct {
	ID          string            `dynamodbav:"id"`
	CompanyID   string            `dynamodbav:"company_id"`
	TemplateID  string            `dynamodbav:"template_id"`
	Title       string            `dynamodbav:"title"`
	Description string            `dynamodbav:"description,omitempty"`
	Status      string            `dynamodbav:"status"`
	TotalAmount string            `dynamodbav:"total_amount"`
	Subtotals   map[string]string `dynamodbav:"subtotals"`
	Metadata    string            `dynamodbav:"metadata,omitempty"`
	Version     int               `dynamodbav:"version"`
	CreatedAt   string            `dynamodbav:"created_at"`
	UpdatedAt   string            `dynamodbav:"updated_at"`
}

type budgetLineItem struct {
	ID          string `dynamodbav:"id"`
	BudgetID    string `dynamodbav:"budget_id"`
	CategoryID  string `dynamodbav:"category_id"`
	FieldValues string `dynamodbav:"field_values"`
	Amount      string `dynamodbav:"amount"`
	Order       int    `dynamodbav:"item_order"`
}

// BudgetDynamoRepository persists budgets in one table and their items in
// another.
//
// Table requirements:
//   - budgets: PK id (string); GSI company_id-index (PK: company_id, SK: created_at)
//   - budget_items: PK id (string); GSI budget_id-index (PK: budget_id)
//
// Every write touching items goes through TransactWriteItems, so a budget and
// its items are stored or removed together. A transaction holds at most 100
// actions, which caps the items a budget can carry.
type BudgetDynamoRepository struct {
	ddb        *dynamodb.Client
	tableName  string
	itemsTable string
}

var _ interfaces.IBudgetRepository = (*BudgetDynamoRepository)(nil)

func NewBudgetDynamoRepository(ddb *dynamodb.Client) *BudgetDynamoRepository {
	return &BudgetDynamoRepository{
		ddb:        ddb,
		tableName:  budgetsTableName(),
		itemsTable: budgetItemsTableName(),
	}
}

func (r *BudgetDynamoRepository) CreateWithItems(ctx context.Context, b entities.Budget) (entities.Budget, error) {
	if len(b.Items)+1 > maxTransactItems {
		return entities.Budget{}, ErrTransactionTooLarge
	}
	put, err := r.budgetPut(b, "attribute_not_exists(#id)")
	if err != nil {
		return entities.Budget{}, err
	}
	actions := []types.TransactWriteItem{put}
	itemPuts, err := r.itemPuts(b)
	if err != nil {
		return entities.Budget{}, err
	}
	actions = append(actions, itemPuts...)

	if _, err := r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: actions}); err != nil {
		return entities.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *BudgetDynamoRepository) GetByID(ctx context.Context, companyID, id string) (entities.Budget, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            stringKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Budget{}, err
	}
	if len(out.Item) == 0 {
		return entities.Budget{}, nil
	}

	var it budgetItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Budget{}, err
	}
	if it.CompanyID != companyID {
		return entities.Budget{}, nil
	}

	lines, err := r.lines(ctx, id)
	if err != nil {
		return entities.Budget{}, err
	}
	b := fromBudgetItem(it)
	b.Items = make([]entities.BudgetItem, 0, len(lines))
	for _, l := range lines {
		item, err := fromBudgetLineItem(l)
		if err != nil {
			return entities.Budget{}, err
		}
		b.Items = append(b.Items, item)
	}
	return b, nil
}

func (r *BudgetDynamoRepository) List(ctx context.Context, companyID string, filter entities.BudgetFilter) ([]entities.Budget, int, error) {
	rows, err := queryIndex[budgetItem](ctx, r.ddb, r.tableName, budgetsCompanyIndex, "company_id", companyID, true)
	if err != nil {
		return nil, 0, err
	}
	sortNewestFirst(rows, func(it budgetItem) string { return it.CreatedAt }, func(it budgetItem) string { return it.ID })

	matches := make([]budgetItem, 0, len(rows))
	for _, it := range rows {
		if filter.Status != "" && it.Status != string(filter.Status) {
			continue
		}
		if filter.TemplateID != "" && it.TemplateID != filter.TemplateID {
			continue
		}
		if !containsFold(it.Title, filter.Search) {
			continue
		}
		matches = append(matches, it)
	}

	page := paginate(matches, filter.Page, filter.Limit)
	out := make([]entities.Budget, 0, len(page))
	for _, it := range page {
		out = append(out, fromBudgetItem(it))
	}
	return out, len(matches), nil
}

// Update rewrites the budget row. With replaceItems the stored items are
// deleted and b.Items written in the same transaction. A missing or foreign
// budget yields a zero Budget.
func (r *BudgetDynamoRepository) Update(ctx context.Context, b entities.Budget, replaceItems bool) (entities.Budget, error) {
	put, err := r.budgetPut(b, "attribute_exists(#id) AND #company_id = :company_id")
	if err != nil {
		return entities.Budget{}, err
	}
	put.Put.ExpressionAttributeNames["#company_id"] = "company_id"
	put.Put.ExpressionAttributeValues = map[string]types.AttributeValue{
		":company_id": &types.AttributeValueMemberS{Value: b.CompanyID},
	}

	if !replaceItems {
		_, err := r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 put.Put.TableName,
			Item:                      put.Put.Item,
			ConditionExpression:       put.Put.ConditionExpression,
			ExpressionAttributeNames:  put.Put.ExpressionAttributeNames,
			ExpressionAttributeValues: put.Put.ExpressionAttributeValues,
		})
		if err != nil {
			if isConditionalCheckFailed(err) {
				return entities.Budget{}, nil
			}
			return entities.Budget{}, fmt.Errorf("update budget: %w", err)
		}
		stored, err := r.lines(ctx, b.ID)
		if err != nil {
			return entities.Budget{}, err
		}
		b.Items = make([]entities.BudgetItem, 0, len(stored))
		for _, l := range stored {
			item, err := fromBudgetLineItem(l)
			if err != nil {
				return entities.Budget{}, err
			}
			b.Items = append(b.Items, item)
		}
		return b, nil
	}

	old, err := r.lines(ctx, b.ID)
	if err != nil {
		return entities.Budget{}, err
	}
	if 1+len(old)+len(b.Items) > maxTransactItems {
		return entities.Budget{}, ErrTransactionTooLarge
	}
	actions := []types.TransactWriteItem{put}
	actions = append(actions, r.itemDeletes(old)...)
	itemPuts, err := r.itemPuts(b)
	if err != nil {
		return entities.Budget{}, err
	}
	actions = append(actions, itemPuts...)

	if _, err := r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: actions}); err != nil {
		if isConditionalCheckFailed(err) {
			return entities.Budget{}, nil
		}
		return entities.Budget{}, fmt.Errorf("update budget items: %w", err)
	}
	return b, nil
}

func (r *BudgetDynamoRepository) Delete(ctx context.Context, companyID, id string) error {
	old, err := r.lines(ctx, id)
	if err != nil {
		return err
	}
	if 1+len(old) > maxTransactItems {
		return ErrTransactionTooLarge
	}
	actions := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:           aws.String(r.tableName),
			Key:                 stringKey(id),
			ConditionExpression: aws.String("#company_id = :company_id"),
			ExpressionAttributeNames: map[string]string{
				"#company_id": "company_id",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":company_id": &types.AttributeValueMemberS{Value: companyID},
			},
		},
	}}
	actions = append(actions, r.itemDeletes(old)...)

	if _, err := r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: actions}); err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *BudgetDynamoRepository) lines(ctx context.Context, budgetID string) ([]budgetLineItem, error) {
	rows, err := queryIndex[budgetLineItem](ctx, r.ddb, r.itemsTable, budgetItemsBudgetIndex, "budget_id", budgetID, false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	return rows, nil
}

func (r *BudgetDynamoRepository) budgetPut(b entities.Budget, condition string) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(toBudgetItem(b))
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                av,
			ConditionExpression: aws.String(condition),
			ExpressionAttributeNames: map[string]string{
				"#id": "id",
			},
		},
	}, nil
}

func (r *BudgetDynamoRepository) itemPuts(b entities.Budget) ([]types.TransactWriteItem, error) {
	out := make([]types.TransactWriteItem, 0, len(b.Items))
	for _, item := range b.Items {
		item.BudgetID = b.ID
		line, err := toBudgetLineItem(item)
		if err != nil {
			return nil, err
		}
		av, err := attributevalue.MarshalMap(line)
		if err != nil {
			return nil, err
		}
		out = append(out, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.itemsTable), Item: av},
		})
	}
	return out, nil
}

func (r *BudgetDynamoRepository) itemDeletes(lines []budgetLineItem) []types.TransactWriteItem {
	out := make([]types.TransactWriteItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(r.itemsTable), Key: stringKey(l.ID)},
		})
	}
	return out
}

func toBudgetItem(b entities.Budget) budgetItem {
	subtotals := make(map[string]string, len(b.Subtotals))
	for name, v := range b.Subtotals {
		subtotals[name] = moneyToString(v)
	}
	return budgetItem{
		ID:          b.ID,
		CompanyID:   b.CompanyID,
		TemplateID:  b.TemplateID,
		Title:       b.Title,
		Description: b.Description,
		Status:      string(b.Status),
		TotalAmount: moneyToString(b.TotalAmount),
		Subtotals:   subtotals,
		Metadata:    string(b.Metadata),
		Version:     b.Version,
		CreatedAt:   formatTime(b.CreatedAt),
		UpdatedAt:   formatTime(b.UpdatedAt),
	}
}

func fromBudgetItem(it budgetItem) entities.Budget {
	subtotals := make(map[string]float64, len(it.Subtotals))
	for name, v := range it.Subtotals {
		subtotals[name] = parseMoney(v)
	}
	var meta json.RawMessage
	if it.Metadata != "" {
		meta = json.RawMessage(it.Metadata)
	}
	return entities.Budget{
		ID:          it.ID,
		CompanyID:   it.CompanyID,
		TemplateID:  it.TemplateID,
		Title:       it.Title,
		Description: it.Description,
		Status:      entities.BudgetStatus(it.Status),
		TotalAmount: parseMoney(it.TotalAmount),
		Subtotals:   subtotals,
		Metadata:    meta,
		Version:     it.Version,
		CreatedAt:   parseTime(it.CreatedAt),
		UpdatedAt:   parseTime(it.UpdatedAt),
	}
}

func toBudgetLineItem(item entities.BudgetItem) (budgetLineItem, error) {
	values, err := json.Marshal(item.FieldValues)
	if err != nil {
		return budgetLineItem{}, fmt.Errorf("encode field values: %w", err)
	}
	return budgetLineItem{
		ID:          item.ID,
		BudgetID:    item.BudgetID,
		CategoryID:  item.CategoryID,
		FieldValues: string(values),
		Amount:      moneyToString(item.Amount),
		Order:       item.Order,
	}, nil
}

func fromBudgetLineItem(l budgetLineItem) (entities.BudgetItem, error) {
	item := entities.BudgetItem{
		ID:         l.ID,
		BudgetID:   l.BudgetID,
		CategoryID: l.CategoryID,
		Amount:     parseMoney(l.Amount),
		Order:      l.Order,
	}
	if l.FieldValues != "" {
		if err := json.Unmarshal([]byte(l.FieldValues), &item.FieldValues); err != nil {
			return entities.BudgetItem{}, fmt.Errorf("decode field values: %w", err)
		}
	}
	return item, nil
}
