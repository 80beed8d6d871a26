package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// maxTransactItems is the DynamoDB limit of actions per TransactWriteItems.
const maxTransactItems = 100

var ErrTransactionTooLarge = errors.New("budget has too many items for a single transaction")

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// timeLayout keeps a fixed number of fractional digits so stored timestamps
// sort lexically in time order (created_at is a GSI sort key).
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// moneyToString stores amounts as fixed two-decimal strings.
func moneyToString(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func parseMoney(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func stringKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// queryIndex reads every page of a GSI query on key = value and decodes the
// rows into T.
func queryIndex[T any](ctx context.Context, ddb *dynamodb.Client, table, index, key, value string, newestFirst bool) ([]T, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": key,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}
	if newestFirst {
		in.ScanIndexForward = aws.Bool(false)
	}

	var out []T
	p := dynamodb.NewQueryPaginator(ddb, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s.%s: %w", table, index, err)
		}
		var rows []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// paginate returns page (1-based) of list; limit 0 returns everything.
func paginate[T any](list []T, page, limit int) []T {
	if limit <= 0 {
		return list
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// sortNewestFirst orders rows by created_at descending, id as tiebreaker.
func sortNewestFirst[T any](rows []T, createdAt func(T) string, id func(T) string) {
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := createdAt(rows[i]), createdAt(rows[j])
		if ci != cj {
			return ci > cj
		}
		return id(rows[i]) > id(rows[j])
	})
}
