package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PaymentRequest struct {
	CustomerID string          `json:"customer_id" validate:"required,uuid"`
	InvoiceID  *string         `json:"invoice_id"  validate:"omitempty,uuid"`
	Amount     decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Notes      *string         `json:"notes"`
}

type SupplierPaymentRequest struct {
	SupplierID string          `json:"supplier_id" validate:"required,uuid"`
	SupplyID   *string         `json:"supply_id"   validate:"omitempty,uuid"`
	Amount     decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Notes      *string         `json:"notes"`
}

type ReceiptRequest struct {
	EntityType string          `json:"entity_type" validate:"required,oneof=customer supplier"`
	EntityID   string          `json:"entity_id"   validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Notes      *string         `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PaymentResponse struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	InvoiceID  *string         `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      *string         `json:"notes"`
	Balance    decimal.Decimal `json:"balance"` // customer balance after posting
	CreatedAt  string          `json:"created_at"`
}

type SupplierPaymentResponse struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"supplier_id"`
	SupplyID   *string         `json:"supply_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      *string         `json:"notes"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  string          `json:"created_at"`
}

type ReceiptResponse struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      *string         `json:"notes"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  string          `json:"created_at"`
}

// PaymentFilter is bound from GET /v1/payments, /v1/supplier-payments and
// /v1/receipts. EntityType only applies to receipts.
type PaymentFilter struct {
	EntityID   string `form:"entity_id"   validate:"omitempty,uuid"`
	EntityType string `form:"entity_type" validate:"omitempty,oneof=customer supplier"`
	From       string `form:"from"` // YYYY-MM-DD, inclusive
	To         string `form:"to"`   // YYYY-MM-DD, inclusive
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PaymentListResponse struct {
	Data  []PaymentResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type SupplierPaymentListResponse struct {
	Data  []SupplierPaymentResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

type ReceiptListResponse struct {
	Data  []ReceiptResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
