package request

import (
	"orcamentos/internal/domain/entities"
	"orcamentos/internal/usecase"
)

type CompanyRequest struct {
	Name     string                   `json:"name" binding:"required"`
	Email    string                   `json:"email" binding:"required,email"`
	Document string                   `json:"document"`
	Settings entities.CompanySettings `json:"settings"`
}

func (r CompanyRequest) ToInput() usecase.CompanyInput {
	return usecase.CompanyInput{
		Name:     r.Name,
		Email:    r.Email,
		Document: r.Document,
		Settings: r.Settings,
	}
}

// CompanySettingsRequest is a partial settings update: absent fields keep
// their stored value.
type CompanySettingsRequest struct {
	entities.CompanySettings
}
