package dto

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    *Meta          `json:"meta,omitempty"`
	Stats   any            `json:"stats,omitempty"`
	Errors  map[string]any `json:"errors,omitempty"`
}

// Meta describes the page of a list response.
type Meta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}
