package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"

	"github.com/rs/zerolog/log"
)

const (
	DemoCompanyEmail = "contato@agilizar.com"
	DemoTemplateName = "Template Básico - Serviços"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run creates the demo company and its service template. Running it again
// leaves existing records untouched.
func Run(ctx context.Context, companies usecase.ICompanyUseCase, templates usecase.ITemplateUseCase) (Stats, error) {
	stats := Stats{}

	company, err := ensureCompany(ctx, companies, &stats)
	if err != nil {
		return Stats{}, err
	}
	if err := ensureTemplate(ctx, templates, company.ID, &stats); err != nil {
		return Stats{}, err
	}

	log.Info().Str("company_id", company.ID).Int("inserts", stats.Inserts).Msg("[seed] done")
	return stats, nil
}

func ensureCompany(ctx context.Context, companies usecase.ICompanyUseCase, stats *Stats) (entities.Company, error) {
	existing, err := companies.GetByEmail(ctx, DemoCompanyEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, usecase.ErrCompanyNotFound) {
		return entities.Company{}, fmt.Errorf("check demo company: %w", err)
	}

	created, err := companies.Create(ctx, usecase.CompanyInput{
		Name:     "Agilizar Soluções",
		Email:    DemoCompanyEmail,
		Document: "12.345.678/0001-90",
		Settings: entities.CompanySettings{
			Currency:     "BRL",
			TaxRate:      entities.Float(0.18),
			ProfitMargin: entities.Float(0.30),
		},
	})
	if err != nil {
		return entities.Company{}, fmt.Errorf("create demo company: %w", err)
	}
	stats.Inserts++
	return created, nil
}

func ensureTemplate(ctx context.Context, templates usecase.ITemplateUseCase, companyID string, stats *Stats) error {
	page, err := templates.List(ctx, companyID, entities.TemplateFilter{Limit: 100})
	if err != nil {
		return fmt.Errorf("check demo template: %w", err)
	}
	for _, tpl := range page.Data {
		if strings.EqualFold(tpl.Name, DemoTemplateName) {
			return nil
		}
	}

	if _, err := templates.Create(ctx, companyID, serviceTemplate()); err != nil {
		return fmt.Errorf("create demo template: %w", err)
	}
	stats.Inserts++
	return nil
}

func serviceTemplate() entities.Template {
	return entities.Template{
		Name:        DemoTemplateName,
		Description: "Template padrão para orçamentos de serviços",
		Active:      true,
		CalculationRules: entities.CalculationRules{
			Strategy:  "service",
			Formula:   "SUM(categories) * (1 + tax_rate) * (1 + profit_margin)",
			Variables: []string{"tax_rate", "profit_margin"},
		},
		Categories: []entities.Category{
			{
				Name:       "Recursos Humanos",
				Order:      1,
				Repeatable: true,
				Fields: []entities.Field{
					{Label: "Função/Cargo", Kind: entities.FieldKindText, Required: true, Order: 1},
					{ID: "quantidade_horas", Label: "Quantidade de Horas", Kind: entities.FieldKindNumber, Required: true, Order: 2, Validation: "min:1,max:1000"},
					{ID: "valor_por_hora", Label: "Valor por Hora (R$)", Kind: entities.FieldKindNumber, Required: true, Order: 3, Validation: "min:0"},
					{Label: "Total", Kind: entities.FieldKindCalculated, Order: 4, Calculation: &entities.FieldCalculation{
						Formula:   "quantidade_horas * valor_por_hora",
						DependsOn: []string{"quantidade_horas", "valor_por_hora"},
					}},
				},
			},
			{
				Name:       "Materiais e Equipamentos",
				Order:      2,
				Repeatable: true,
				Fields: []entities.Field{
					{Label: "Descrição do Item", Kind: entities.FieldKindText, Required: true, Order: 1},
					{ID: "quantidade", Label: "Quantidade", Kind: entities.FieldKindNumber, Required: true, Order: 2, Validation: "min:1"},
					{ID: "valor_unitario", Label: "Valor Unitário (R$)", Kind: entities.FieldKindNumber, Required: true, Order: 3, Validation: "min:0"},
					{Label: "Total", Kind: entities.FieldKindCalculated, Order: 4, Calculation: &entities.FieldCalculation{
						Formula:   "quantidade * valor_unitario",
						DependsOn: []string{"quantidade", "valor_unitario"},
					}},
				},
			},
			{
				Name:       "Despesas Adicionais",
				Order:      3,
				Repeatable: true,
				Fields: []entities.Field{
					{Label: "Tipo de Despesa", Kind: entities.FieldKindSelect, Required: true, Order: 1,
						Options: entities.FieldOptions{"Transporte", "Hospedagem", "Alimentação", "Outros"}},
					{Label: "Descrição", Kind: entities.FieldKindText, Order: 2},
					{Label: "Valor (R$)", Kind: entities.FieldKindNumber, Required: true, Order: 3, Validation: "min:0"},
				},
			},
		},
	}
}
