package sqlstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"orcamentos/internal/domain/entities"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "orcamentos-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seedCompany(t *testing.T, db *DB) entities.Company {
	t.Helper()
	c := entities.Company{
		ID:        "company-1",
		Name:      "Agilizar Soluções",
		Email:     "contato@agilizar.com.br",
		Settings:  entities.CompanySettings{Currency: "BRL", ISSRate: entities.Float(0.05)},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	if _, err := NewCompanyRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	if got := pg.rebind(`SELECT * FROM t WHERE a = ? AND b = ?`); got != `SELECT * FROM t WHERE a = $1 AND b = $2` {
		t.Fatalf("unexpected rebind: %s", got)
	}
	lite := &DB{dialect: DialectSQLite}
	if got := lite.rebind(`a = ?`); got != `a = ?` {
		t.Fatalf("sqlite queries must not change: %s", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}

func TestCompanyRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)
	c := seedCompany(t, db)

	got, err := repo.GetByEmail(ctx, c.Email)
	if err != nil || got.ID != c.ID || got.Settings.ISSRate == nil || *got.Settings.ISSRate != 0.05 {
		t.Fatalf("unexpected company err=%v got=%+v", err, got)
	}
	if got.Settings.TaxRate != nil {
		t.Fatalf("unset rates must stay unset")
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing.ID != "" {
		t.Fatalf("expected zero company, got %+v (%v)", missing, err)
	}

	c.Settings.TaxRate = entities.Float(0.1)
	if _, err := repo.Update(ctx, c); err != nil {
		t.Fatalf("update company: %v", err)
	}
	got, _ = repo.GetByID(ctx, c.ID)
	if got.Settings.TaxRate == nil || *got.Settings.TaxRate != 0.1 || !got.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected updated company: %+v", got)
	}

	ghost, err := repo.Update(ctx, entities.Company{ID: "ghost"})
	if err != nil || ghost.ID != "" {
		t.Fatalf("expected zero company for missing id, got %+v (%v)", ghost, err)
	}
}

func TestTemplateRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCompany(t, db)
	repo := NewTemplateRepository(db)

	for i, name := range []string{"Template Básico - Serviços", "Industrial Pesado", "Serviços Premium"} {
		_, err := repo.Create(ctx, entities.Template{
			ID:               "tpl-" + string(rune('a'+i)),
			CompanyID:        "company-1",
			Name:             name,
			Active:           i != 2,
			CalculationRules: entities.CalculationRules{Strategy: "service"},
			Categories: []entities.Category{{
				ID:     "cat",
				Name:   "Recursos Humanos",
				Fields: []entities.Field{{ID: "horas", Label: "Horas", Kind: entities.FieldKindNumber}},
			}},
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
			UpdatedAt: baseTime,
		})
		if err != nil {
			t.Fatalf("create template: %v", err)
		}
	}

	t.Run("get scoped by company", func(t *testing.T) {
		tpl, err := repo.GetByID(ctx, "company-1", "tpl-a")
		if err != nil || tpl.ID != "tpl-a" || len(tpl.Categories) != 1 || tpl.Categories[0].Fields[0].Kind != entities.FieldKindNumber {
			t.Fatalf("unexpected template err=%v tpl=%+v", err, tpl)
		}
		other, err := repo.GetByID(ctx, "company-2", "tpl-a")
		if err != nil || other.ID != "" {
			t.Fatalf("expected zero template for another company, got %+v", other)
		}
	})

	t.Run("search is case insensitive and newest first", func(t *testing.T) {
		list, total, err := repo.List(ctx, "company-1", entities.TemplateFilter{Search: "SERVIÇOS", Page: 1, Limit: 10})
		if err != nil {
			t.Fatalf("list templates: %v", err)
		}
		if total != 2 || len(list) != 2 || list[0].ID != "tpl-c" {
			t.Fatalf("unexpected list total=%d list=%+v", total, list)
		}
	})

	t.Run("active filter and pagination", func(t *testing.T) {
		active := true
		list, total, err := repo.List(ctx, "company-1", entities.TemplateFilter{Active: &active, Page: 2, Limit: 1})
		if err != nil {
			t.Fatalf("list templates: %v", err)
		}
		if total != 2 || len(list) != 1 || list[0].ID != "tpl-a" {
			t.Fatalf("unexpected page total=%d list=%+v", total, list)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		tpl, _ := repo.GetByID(ctx, "company-1", "tpl-b")
		tpl.Name = "Industrial Leve"
		if _, err := repo.Update(ctx, tpl); err != nil {
			t.Fatalf("update template: %v", err)
		}
		tpl.CompanyID = "company-2"
		if got, _ := repo.Update(ctx, tpl); got.ID != "" {
			t.Fatalf("update of a foreign template must be a no-op")
		}
		if err := repo.Delete(ctx, "company-1", "tpl-b"); err != nil {
			t.Fatalf("delete template: %v", err)
		}
		if got, _ := repo.GetByID(ctx, "company-1", "tpl-b"); got.ID != "" {
			t.Fatalf("template should be gone")
		}
	})
}

func sampleBudget(id string, created time.Time, status entities.BudgetStatus) entities.Budget {
	return entities.Budget{
		ID:          id,
		CompanyID:   "company-1",
		TemplateID:  "tpl-a",
		Title:       "Orçamento " + id,
		Status:      status,
		TotalAmount: 1638,
		Subtotals:   map[string]float64{"Recursos Humanos (Consultoria)": 1040, "Recursos Humanos (Execução)": 520},
		Metadata:    json.RawMessage(`{"strategy_used":"service"}`),
		Version:     1,
		Items: []entities.BudgetItem{
			{ID: id + "-i2", CategoryID: "cat", FieldValues: map[string]any{"horas": 10.0}, Amount: 520, Order: 2},
			{ID: id + "-i1", CategoryID: "cat", FieldValues: map[string]any{"horas": 20.0}, Amount: 1040, Order: 1},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestBudgetRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedCompany(t, db)
	repo := NewBudgetRepository(db)

	if _, err := repo.CreateWithItems(ctx, sampleBudget("b1", baseTime, entities.BudgetStatusDraft)); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := repo.CreateWithItems(ctx, sampleBudget("b2", baseTime.Add(time.Hour), entities.BudgetStatusApproved)); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	t.Run("get loads ordered items", func(t *testing.T) {
		b, err := repo.GetByID(ctx, "company-1", "b1")
		if err != nil {
			t.Fatalf("get budget: %v", err)
		}
		if b.TotalAmount != 1638 || b.Subtotals["Recursos Humanos (Execução)"] != 520 || string(b.Metadata) != `{"strategy_used":"service"}` {
			t.Fatalf("unexpected budget: %+v", b)
		}
		if len(b.Items) != 2 || b.Items[0].ID != "b1-i1" || b.Items[1].BudgetID != "b1" || b.Items[0].FieldValues["horas"] != 20.0 {
			t.Fatalf("unexpected items: %+v", b.Items)
		}
	})

	t.Run("failed create leaves nothing behind", func(t *testing.T) {
		broken := sampleBudget("b3", baseTime, entities.BudgetStatusDraft)
		broken.Items[1].ID = "b1-i1" // collides with a stored item
		if _, err := repo.CreateWithItems(ctx, broken); err == nil {
			t.Fatalf("expected error on duplicate item id")
		}
		if b, _ := repo.GetByID(ctx, "company-1", "b3"); b.ID != "" {
			t.Fatalf("budget must not be persisted without its items")
		}
	})

	t.Run("list filters", func(t *testing.T) {
		list, total, err := repo.List(ctx, "company-1", entities.BudgetFilter{})
		if err != nil || total != 2 || len(list) != 2 || list[0].ID != "b2" {
			t.Fatalf("unexpected list err=%v total=%d list=%+v", err, total, list)
		}
		if len(list[0].Items) != 0 {
			t.Fatalf("listed budgets carry no items")
		}
		list, total, _ = repo.List(ctx, "company-1", entities.BudgetFilter{Status: entities.BudgetStatusApproved, Page: 1, Limit: 10})
		if total != 1 || list[0].ID != "b2" {
			t.Fatalf("unexpected status filter result: %+v", list)
		}
		_, total, _ = repo.List(ctx, "company-1", entities.BudgetFilter{Search: "orçamento B1", TemplateID: "tpl-a"})
		if total != 1 {
			t.Fatalf("expected search match, got %d", total)
		}
	})

	t.Run("update keeps or replaces items", func(t *testing.T) {
		b, _ := repo.GetByID(ctx, "company-1", "b1")
		b.Title = "Novo título"
		b.Items = nil
		got, err := repo.Update(ctx, b, false)
		if err != nil || len(got.Items) != 2 {
			t.Fatalf("items must be kept, err=%v items=%+v", err, got.Items)
		}

		b.Items = []entities.BudgetItem{{ID: "b1-new", CategoryID: "cat", FieldValues: map[string]any{}, Amount: 10, Order: 1}}
		b.Version = 2
		got, err = repo.Update(ctx, b, true)
		if err != nil || len(got.Items) != 1 || got.Items[0].ID != "b1-new" {
			t.Fatalf("items must be replaced, err=%v items=%+v", err, got.Items)
		}
		stored, _ := repo.GetByID(ctx, "company-1", "b1")
		if stored.Title != "Novo título" || stored.Version != 2 || len(stored.Items) != 1 {
			t.Fatalf("unexpected stored budget: %+v", stored)
		}

		b.CompanyID = "company-2"
		if got, _ := repo.Update(ctx, b, true); got.ID != "" {
			t.Fatalf("foreign update must be a no-op")
		}
	})

	t.Run("delete removes items", func(t *testing.T) {
		if err := repo.Delete(ctx, "company-2", "b2"); err != nil {
			t.Fatalf("foreign delete: %v", err)
		}
		if b, _ := repo.GetByID(ctx, "company-1", "b2"); b.ID == "" {
			t.Fatalf("foreign delete must keep the budget")
		}
		if err := repo.Delete(ctx, "company-1", "b2"); err != nil {
			t.Fatalf("delete budget: %v", err)
		}
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM budget_items WHERE budget_id = ?`, "b2").Scan(&n); err != nil || n != 0 {
			t.Fatalf("expected items removed, got %d (%v)", n, err)
		}
	})
}

func TestBudgetPaymentRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewBudgetPaymentRepository(db)

	for i, id := range []string{"pay-2", "pay-1"} {
		_, err := repo.Create(ctx, entities.BudgetPayment{
			ID:           id,
			BudgetID:     "b1",
			CompanyID:    "company-1",
			Amount:       77.2,
			Date:         baseTime.Add(-time.Duration(i) * time.Minute),
			Status:       entities.PaymentStatusAprovado,
			MPPayloadRaw: json.RawMessage(`{"id":"` + id + `"}`),
			MPPayload:    map[string]interface{}{"id": id},
		})
		if err != nil {
			t.Fatalf("create payment: %v", err)
		}
	}

	p, err := repo.GetByID(ctx, "pay-1")
	if err != nil || p.Amount != 77.2 || p.MPPayload["id"] != "pay-1" || p.Status != entities.PaymentStatusAprovado {
		t.Fatalf("unexpected payment err=%v p=%+v", err, p)
	}
	if missing, _ := repo.GetByID(ctx, "nope"); missing.ID != "" {
		t.Fatalf("expected zero payment")
	}

	list, err := repo.ListByBudgetID(ctx, "b1")
	if err != nil || len(list) != 2 || list[0].ID != "pay-1" {
		t.Fatalf("unexpected list err=%v list=%+v", err, list)
	}
}
