package response

import (
	"time"

	"orcamentos/internal/domain/entities"
)

type CompanyResponse struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	Document  string                   `json:"document,omitempty"`
	Settings  entities.CompanySettings `json:"settings"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func FromCompany(c entities.Company) CompanyResponse {
	return CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Document:  c.Document,
		Settings:  c.Settings,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
