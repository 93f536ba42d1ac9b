package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// InvoiceItemRequest describes one sales line. When ProductID is set, omitted
// name and prices are taken from the product row.
type InvoiceItemRequest struct {
	ProductID     *string          `json:"product_id"     validate:"omitempty,uuid"`
	ProductName   string           `json:"product_name"`
	Quantity      int              `json:"quantity"       validate:"required,min=1"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
}

type CreateInvoiceRequest struct {
	Date        *time.Time `json:"date"`
	PaymentType string     `json:"payment_type" validate:"required,oneof=cash credit"`
	CustomerID  *string    `json:"customer_id"  validate:"omitempty,uuid"`
	// PaidAmount / RemainingAmount: when omitted they are derived from the total.
	PaidAmount      *decimal.Decimal     `json:"paid_amount"`
	RemainingAmount *decimal.Decimal     `json:"remaining_amount"`
	Notes           *string              `json:"notes"`
	Items           []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest is the explicit patch for an active invoice. Nil fields
// keep their stored value. Items, when sent, replaces the whole line set and
// omitted prices default to the stored line of the same product; nil Items
// keeps the stored lines and leaves stock alone. CustomerID set to ""
// detaches the customer.
type UpdateInvoiceRequest struct {
	Date            *time.Time           `json:"date"`
	PaymentType     *string              `json:"payment_type"     validate:"omitempty,oneof=cash credit"`
	CustomerID      *string              `json:"customer_id"      validate:"omitempty,uuid"`
	PaidAmount      *decimal.Decimal     `json:"paid_amount"`
	RemainingAmount *decimal.Decimal     `json:"remaining_amount"`
	Notes           *string              `json:"notes"`
	Items           []InvoiceItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InvoiceItemResponse struct {
	ProductID     *string         `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type InvoiceResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	Date            string                `json:"date"`
	Status          string                `json:"status"`
	PaymentType     string                `json:"payment_type"`
	Total           decimal.Decimal       `json:"total"`
	PaidAmount      decimal.Decimal       `json:"paid_amount"`
	RemainingAmount decimal.Decimal       `json:"remaining_amount"`
	CustomerID      *string               `json:"customer_id"`
	Notes           *string               `json:"notes"`
	CancelledAt     *string               `json:"cancelled_at"`
	Items           []InvoiceItemResponse `json:"items"`
	Compensation    *CompensationReport   `json:"compensation,omitempty"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
