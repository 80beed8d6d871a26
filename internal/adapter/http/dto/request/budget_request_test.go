package request

import (
	"encoding/json"
	"testing"

	"orcamentos/internal/domain/entities"
)

func TestBudgetUpdateRequest_ToInput(t *testing.T) {
	t.Run("absent items keep stored items", func(t *testing.T) {
		var r BudgetUpdateRequest
		if err := json.Unmarshal([]byte(`{"title":"Novo"}`), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		in := r.ToInput()
		if in.ReplaceItems || in.Items != nil {
			t.Fatalf("expected items untouched, got %+v", in)
		}
		if in.Title == nil || *in.Title != "Novo" || in.Status != nil {
			t.Fatalf("unexpected input: %+v", in)
		}
	})

	t.Run("empty items replace stored items", func(t *testing.T) {
		var r BudgetUpdateRequest
		if err := json.Unmarshal([]byte(`{"items":[],"status":" sent "}`), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		in := r.ToInput()
		if !in.ReplaceItems || len(in.Items) != 0 {
			t.Fatalf("expected replacement with no items, got %+v", in)
		}
		if in.Status == nil || *in.Status != entities.BudgetStatusSent {
			t.Fatalf("unexpected status: %v", in.Status)
		}
	})
}

func TestBudgetRequest_ToInput(t *testing.T) {
	r := BudgetRequest{
		TemplateID: "tpl-1",
		Title:      "Consultoria",
		Items: []BudgetItemRequest{
			{CategoryID: "rh", FieldValues: map[string]any{"horas": 10.0}, Order: 2},
			{CategoryID: "desp"},
		},
	}
	in := r.ToInput()
	if in.TemplateID != "tpl-1" || len(in.Items) != 2 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.Items[0].FieldValues["horas"] != 10.0 || in.Items[0].Order != 2 {
		t.Fatalf("unexpected first item: %+v", in.Items[0])
	}
	if in.Items[1].FieldValues == nil {
		t.Fatalf("missing field values must become an empty map")
	}
}

func TestBudgetListQuery_ToFilter(t *testing.T) {
	f := BudgetListQuery{Search: "obra", Status: " APPROVED ", TemplateID: " tpl ", Page: 2, Limit: 5}.ToFilter()
	if f.Status != entities.BudgetStatusApproved || f.TemplateID != "tpl" || f.Page != 2 || f.Limit != 5 || f.Search != "obra" {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestBudgetStatusRequest_ToStatus(t *testing.T) {
	if got := (BudgetStatusRequest{Status: " Rejected"}).ToStatus(); got != entities.BudgetStatusRejected {
		t.Fatalf("unexpected status %q", got)
	}
}
