package calculation_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"orcamentos/internal/calculation"
	"orcamentos/internal/domain/entities"
	mock_interfaces "orcamentos/internal/usecase/interfaces/mocks"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func laborTemplate(strategy, categoryName string) entities.Template {
	return entities.Template{
		ID:               "tpl-1",
		CompanyID:        "company-1",
		Name:             "Template",
		Active:           true,
		CalculationRules: entities.CalculationRules{Strategy: strategy},
		Categories: []entities.Category{
			{
				ID:         "cat-1",
				Name:       categoryName,
				Repeatable: true,
				Fields: []entities.Field{
					{
						ID:    "total",
						Label: "total",
						Kind:  entities.FieldKindCalculated,
						Calculation: &entities.FieldCalculation{
							Formula:   "quantidade_horas * valor_por_hora",
							DependsOn: []string{"quantidade_horas", "valor_por_hora"},
						},
					},
				},
			},
		},
	}
}

func newEngine(t *testing.T, company entities.Company) *calculation.Engine {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mock_interfaces.NewMockICompanyRepository(ctrl)
	repo.EXPECT().GetByID(gomock.Any(), company.ID).Return(company, nil).AnyTimes()
	return calculation.NewEngine(repo, zerolog.Nop(), calculation.WithClock(func() time.Time { return fixedNow }))
}

func TestEngine_Calculate_Scenarios(t *testing.T) {
	company := entities.Company{ID: "company-1", Name: "ACME"}
	items := func(values calculation.FieldValues) []calculation.Item {
		return []calculation.Item{{CategoryID: "cat-1", FieldValues: values, Order: 1}}
	}

	t.Run("default strategy charges the default tax", func(t *testing.T) {
		engine := newEngine(t, company)
		res, err := engine.Calculate(context.Background(), laborTemplate("default", "Labor"),
			items(calculation.FieldValues{"quantidade_horas": 10, "valor_por_hora": 50}), company.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !nearlyEqual(res.Metadata.BaseTotal, 500) || !nearlyEqual(res.Total, 590) {
			t.Fatalf("expected base 500 total 590, got base %v total %v", res.Metadata.BaseTotal, res.Total)
		}
		if !nearlyEqual(res.Metadata.Taxes, 90) {
			t.Fatalf("expected taxes 90, got %v", res.Metadata.Taxes)
		}
		if res.Subtotals["Labor"] != 500 {
			t.Fatalf("unexpected subtotals: %v", res.Subtotals)
		}
		if res.Metadata.StrategyUsed != "default" || res.Metadata.Currency != "BRL" {
			t.Fatalf("unexpected metadata: %+v", res.Metadata)
		}
		if !res.Metadata.CalculationDate.Equal(fixedNow) {
			t.Fatalf("expected injected clock, got %v", res.Metadata.CalculationDate)
		}
	})

	t.Run("industrial strategy applies factors taxes and margin", func(t *testing.T) {
		engine := newEngine(t, company)
		res, err := engine.Calculate(context.Background(), laborTemplate("industrial", "Materiais"),
			items(calculation.FieldValues{"quantidade_horas": 10, "valor_por_hora": 50}), company.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Items) != 1 || !nearlyEqual(res.Items[0].Amount, 550) {
			t.Fatalf("expected adjusted item amount 550, got %+v", res.Items)
		}
		f := res.Metadata.IndustrialFactors
		if f == nil || !nearlyEqual(f.FactoredTotal, 605) {
			t.Fatalf("expected factored total 605, got %+v", f)
		}
		if math.Abs(res.Metadata.Taxes-162.14) > 1e-6 {
			t.Fatalf("expected taxes 162.14, got %v", res.Metadata.Taxes)
		}
		if math.Abs(res.Total-997.282) > 1e-6 {
			t.Fatalf("expected total 997.282, got %v", res.Total)
		}
		if res.Subtotals["Materiais"] != res.Items[0].Amount {
			t.Fatalf("subtotal should match adjusted item amount, got %v", res.Subtotals)
		}
	})

	t.Run("service strategy applies urgency iss and margin", func(t *testing.T) {
		engine := newEngine(t, company)
		res, err := engine.Calculate(context.Background(), laborTemplate("service", "Suporte"),
			items(calculation.FieldValues{"quantidade_horas": 20, "valor_por_hora": 50, "urgencia": "alta"}), company.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !nearlyEqual(res.Metadata.BaseTotal, 1200) {
			t.Fatalf("expected base 1200, got %v", res.Metadata.BaseTotal)
		}
		if !nearlyEqual(res.Metadata.Taxes, 60) {
			t.Fatalf("expected ISS 60, got %v", res.Metadata.Taxes)
		}
		if math.Abs(res.Total-1638) > 1e-9 {
			t.Fatalf("expected total 1638, got %v", res.Total)
		}
		if res.Metadata.Discounts == nil || *res.Metadata.Discounts != 0 {
			t.Fatalf("expected zero discount, got %v", res.Metadata.Discounts)
		}
	})

	t.Run("required field left empty fails validation", func(t *testing.T) {
		tpl := laborTemplate("default", "Labor")
		tpl.Categories[0].Fields = append([]entities.Field{{ID: "funcao", Label: "Função", Kind: entities.FieldKindText, Required: true}}, tpl.Categories[0].Fields...)

		engine := newEngine(t, company)
		_, err := engine.Calculate(context.Background(), tpl,
			items(calculation.FieldValues{"quantidade_horas": 10, "valor_por_hora": 50, "Função": "  "}), company.ID)
		if !errors.Is(err, calculation.ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
		var verr *calculation.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if verr.Result.Valid || len(verr.Result.Errors) != 1 {
			t.Fatalf("unexpected validation result: %+v", verr.Result)
		}
		if want := `required field "Função" is empty in category "Labor"`; verr.Result.Errors[0] != want {
			t.Fatalf("expected %q, got %q", want, verr.Result.Errors[0])
		}
	})
}

func TestEngine_Calculate_Errors(t *testing.T) {
	t.Run("missing template", func(t *testing.T) {
		engine := newEngine(t, entities.Company{ID: "company-1"})
		_, err := engine.Calculate(context.Background(), entities.Template{}, nil, "company-1")
		if !errors.Is(err, calculation.ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	t.Run("missing company", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock_interfaces.NewMockICompanyRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), "ghost").Return(entities.Company{}, nil)
		engine := calculation.NewEngine(repo, zerolog.Nop())

		_, err := engine.Calculate(context.Background(), laborTemplate("default", "Labor"), nil, "ghost")
		if !errors.Is(err, calculation.ErrCompanyNotFound) {
			t.Fatalf("expected ErrCompanyNotFound, got %v", err)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock_interfaces.NewMockICompanyRepository(ctrl)
		boom := errors.New("boom")
		repo.EXPECT().GetByID(gomock.Any(), "company-1").Return(entities.Company{}, boom)
		engine := calculation.NewEngine(repo, zerolog.Nop())

		_, err := engine.Calculate(context.Background(), laborTemplate("default", "Labor"), nil, "company-1")
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped repository error, got %v", err)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		engine := newEngine(t, entities.Company{ID: "company-1", Settings: entities.CompanySettings{TaxRate: entities.Float(1.5)}})
		_, err := engine.Calculate(context.Background(), laborTemplate("default", "Labor"), nil, "company-1")
		if !errors.Is(err, calculation.ErrInvalidSettings) {
			t.Fatalf("expected ErrInvalidSettings, got %v", err)
		}
	})
}

func TestEngine_Calculate_Properties(t *testing.T) {
	company := entities.Company{ID: "company-1"}
	tpl := entities.Template{
		ID: "tpl-2",
		Categories: []entities.Category{
			{
				ID:         "mat",
				Name:       "Materiais",
				Repeatable: true,
				Fields: []entities.Field{
					{ID: "descricao", Label: "Descrição", Kind: entities.FieldKindText},
					{ID: "quantidade", Label: "Quantidade", Kind: entities.FieldKindNumber},
					{ID: "insumo", Label: "Insumo", Kind: entities.FieldKindNumber},
					{
						ID:    "frete",
						Label: "Frete",
						Kind:  entities.FieldKindCalculated,
						Calculation: &entities.FieldCalculation{
							Formula:   "quantidade * 2",
							DependsOn: []string{"quantidade"},
						},
					},
					{
						ID:    "quebrado",
						Label: "Quebrado",
						Kind:  entities.FieldKindCalculated,
						Calculation: &entities.FieldCalculation{
							Formula: "desconhecido * 3",
						},
					},
				},
			},
		},
	}
	items := []calculation.Item{
		{CategoryID: "mat", Order: 1, FieldValues: calculation.FieldValues{
			"Descrição":  "Cimento",
			"Quantidade": 4,
			"Insumo":     map[string]any{"value": 3.0, "unit_cost": 12.5},
		}},
		{CategoryID: "missing", Order: 2, FieldValues: calculation.FieldValues{"Quantidade": 1000}},
	}

	engine := newEngine(t, company)
	first, err := engine.Calculate(context.Background(), tpl, items, company.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("unknown category is skipped with a warning", func(t *testing.T) {
		if len(first.Items) != 1 || first.Items[0].CategoryID != "mat" {
			t.Fatalf("expected only the known item, got %+v", first.Items)
		}
		if _, ok := first.Metadata.CategoryBreakdown["missing"]; ok {
			t.Fatalf("unknown category must not reach the breakdown")
		}
		if !containsPrefix(first.Warnings, "item 1 references unknown category") {
			t.Fatalf("expected unknown category warning, got %v", first.Warnings)
		}
	})

	t.Run("formula failure contributes zero with a warning", func(t *testing.T) {
		calcs := first.Items[0].Calculations
		if calcs["Quebrado"] != 0.0 {
			t.Fatalf("expected 0 for failing formula, got %v", calcs["Quebrado"])
		}
		if !containsPrefix(first.Warnings, `field "Quebrado"`) {
			t.Fatalf("expected formula warning, got %v", first.Warnings)
		}
	})

	t.Run("amount equals the sum of the audit trail", func(t *testing.T) {
		item := first.Items[0]
		// 4 (quantidade) + 37.5 (insumo) + 8 (frete) + 0 (quebrado)
		if !nearlyEqual(item.Amount, 49.5) {
			t.Fatalf("expected amount 49.5, got %v", item.Amount)
		}
		var sum float64
		for _, v := range item.Calculations {
			switch x := v.(type) {
			case float64:
				sum += x
			case calculation.UnitCostCalculation:
				sum += x.Total
			}
		}
		if !nearlyEqual(sum, item.Amount) {
			t.Fatalf("audit trail sums to %v, amount is %v", sum, item.Amount)
		}
		if item.Calculations["Descrição"] != "Cimento" {
			t.Fatalf("text values should be recorded, got %v", item.Calculations["Descrição"])
		}
	})

	t.Run("totals are consistent", func(t *testing.T) {
		var sum float64
		for _, it := range first.Items {
			sum += it.Amount
		}
		if !nearlyEqual(sum, first.Metadata.BaseTotal) {
			t.Fatalf("base total %v differs from item sum %v", first.Metadata.BaseTotal, sum)
		}
		if !nearlyEqual(first.Total, first.Metadata.BaseTotal+first.Metadata.Taxes) {
			t.Fatalf("total %v differs from base+taxes", first.Total)
		}
	})

	t.Run("calculation is idempotent with a fixed clock", func(t *testing.T) {
		second, err := engine.Calculate(context.Background(), tpl, items, company.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		if string(a) != string(b) {
			t.Fatalf("results differ:\n%s\n%s", a, b)
		}
	})
}

func TestEngine_Calculate_Overrides(t *testing.T) {
	company := entities.Company{ID: "company-1", Settings: entities.CompanySettings{TaxRate: entities.Float(0.1)}}
	engine := newEngine(t, company)

	res, err := engine.Calculate(context.Background(), laborTemplate("default", "Labor"),
		[]calculation.Item{{CategoryID: "cat-1", FieldValues: calculation.FieldValues{"quantidade_horas": 1, "valor_por_hora": 100}}},
		company.ID,
		calculation.WithOverrides(calculation.Overrides{Currency: "usd", TaxRates: map[string]float64{"default": 0}}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 100 || res.Metadata.Currency != "USD" {
		t.Fatalf("expected untaxed USD total 100, got %v %s", res.Total, res.Metadata.Currency)
	}
}

func TestEngine_Strategies(t *testing.T) {
	engine := calculation.NewEngine(nil, zerolog.Nop())
	got := engine.Strategies()
	if len(got) != 3 || got[0] != "default" || got[1] != "industrial" || got[2] != "service" {
		t.Fatalf("unexpected strategies: %v", got)
	}
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
