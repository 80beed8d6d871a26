package response

import "orcamentos/internal/domain/entities"

type PageResponse[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// FromPage converts every entry of a listing page with conv.
func FromPage[E, T any](p entities.Page[E], conv func(E) T) PageResponse[T] {
	data := make([]T, 0, len(p.Data))
	for _, e := range p.Data {
		data = append(data, conv(e))
	}
	return PageResponse[T]{Data: data, Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.TotalPages}
}
