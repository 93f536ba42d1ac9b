package dto

import "github.com/shopspring/decimal"

// StatisticsFilter is bound from GET /v1/statistics.
type StatisticsFilter struct {
	From string `form:"from" validate:"required"` // YYYY-MM-DD
	To   string `form:"to"   validate:"required"` // YYYY-MM-DD
}

type TopProduct struct {
	ProductID   *string         `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type StatisticsResponse struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	InvoiceCount int             `json:"invoice_count"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Profit       decimal.Decimal `json:"profit"`
	TopProducts  []TopProduct    `json:"top_products"`
}
