package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Text   string `query:"text" json:"text" validate:"required,max=2000"`
	Source string `query:"source" json:"source" default:"manual" validate:"max=64"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=8"`
}

type NewsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=8"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
