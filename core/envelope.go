package core

// Envelope is the body of every API response.
type Envelope struct {
	Data  interface{} `json:"data"`
	Meta  *Meta       `json:"meta,omitempty"`
	Error *ErrorBody  `json:"error,omitempty"`
}

// Meta describes the page of a list response.
type Meta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PageMeta returns the Meta of p.
func PageMeta[T any](p Paged[T]) *Meta {
	return &Meta{Page: p.Pagination.Page, PerPage: p.Pagination.PerPage, Total: p.Total}
}
