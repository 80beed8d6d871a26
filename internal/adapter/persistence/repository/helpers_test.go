package repository

import (
	"errors"
	"fmt"
	"testing"

	"orcamentos/internal/domain/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestPaginate(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}
	cases := []struct {
		name        string
		page, limit int
		want        int
	}{
		{name: "first page", page: 1, limit: 2, want: 2},
		{name: "last partial page", page: 3, limit: 2, want: 1},
		{name: "past the end", page: 4, limit: 2, want: 0},
		{name: "no limit", page: 1, limit: 0, want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := paginate(list, tc.page, tc.limit); len(got) != tc.want {
				t.Fatalf("expected %d rows, got %v", tc.want, got)
			}
		})
	}
}

func TestMoney(t *testing.T) {
	if got := moneyToString(997.2824); got != "997.28" {
		t.Fatalf("unexpected money string %q", got)
	}
	if got := parseMoney("1638.00"); got != 1638 {
		t.Fatalf("unexpected money %v", got)
	}
	if got := parseMoney("abc"); got != 0 {
		t.Fatalf("expected zero for garbage, got %v", got)
	}
}

func TestIsConditionalCheckFailed(t *testing.T) {
	if !isConditionalCheckFailed(fmt.Errorf("wrap: %w", &types.ConditionalCheckFailedException{})) {
		t.Fatalf("expected conditional check failure")
	}
	tce := &types.TransactionCanceledException{CancellationReasons: []types.CancellationReason{
		{Code: aws.String("None")},
		{Code: aws.String("ConditionalCheckFailed")},
	}}
	if !isConditionalCheckFailed(tce) {
		t.Fatalf("expected cancelled transaction to count as conditional failure")
	}
	if isConditionalCheckFailed(errors.New("boom")) {
		t.Fatalf("plain errors are not conditional failures")
	}
}

func TestSortNewestFirst(t *testing.T) {
	rows := []templateItem{
		{ID: "a", CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "b", CreatedAt: "2026-03-01T00:00:00Z"},
		{ID: "c", CreatedAt: "2026-01-01T00:00:00Z"},
	}
	sortNewestFirst(rows, func(it templateItem) string { return it.CreatedAt }, func(it templateItem) string { return it.ID })
	if rows[0].ID != "b" || rows[1].ID != "c" || rows[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}

func TestTableSpecs(t *testing.T) {
	for _, spec := range tableSpecs() {
		in := spec.createInput()
		if in.BillingMode != types.BillingModePayPerRequest || len(in.GlobalSecondaryIndexes) != 1 {
			t.Fatalf("unexpected create input for %s", spec.name)
		}
		defined := map[string]bool{}
		for _, a := range in.AttributeDefinitions {
			defined[aws.ToString(a.AttributeName)] = true
		}
		for _, k := range in.GlobalSecondaryIndexes[0].KeySchema {
			if !defined[aws.ToString(k.AttributeName)] {
				t.Fatalf("%s: key %s has no attribute definition", spec.name, aws.ToString(k.AttributeName))
			}
		}
	}
}

func TestBudgetLineItemKeepsFieldValues(t *testing.T) {
	line, err := toBudgetLineItem(entities.BudgetItem{
		ID:          "i1",
		BudgetID:    "b1",
		FieldValues: map[string]any{"horas": 10.0, "nivel": "Senior"},
		Amount:      1300,
		Order:       2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, err := fromBudgetLineItem(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.FieldValues["nivel"] != "Senior" || item.FieldValues["horas"] != 10.0 || item.Amount != 1300 || item.Order != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
}
