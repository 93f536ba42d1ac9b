package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SupplyItemRequest struct {
	ProductID     *string          `json:"product_id"     validate:"omitempty,uuid"`
	ProductName   string           `json:"product_name"`
	Quantity      int              `json:"quantity"       validate:"required,min=1"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
}

type CreateSupplyRequest struct {
	Date            *time.Time          `json:"date"`
	PaymentType     string              `json:"payment_type"     validate:"required,oneof=cash credit"`
	SupplierID      *string             `json:"supplier_id"      validate:"omitempty,uuid"`
	PaidAmount      *decimal.Decimal    `json:"paid_amount"`
	RemainingAmount *decimal.Decimal    `json:"remaining_amount"`
	Notes           *string             `json:"notes"`
	Items           []SupplyItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateSupplyRequest mirrors UpdateInvoiceRequest for purchase documents.
type UpdateSupplyRequest struct {
	Date            *time.Time          `json:"date"`
	PaymentType     *string             `json:"payment_type"     validate:"omitempty,oneof=cash credit"`
	SupplierID      *string             `json:"supplier_id"      validate:"omitempty,uuid"`
	PaidAmount      *decimal.Decimal    `json:"paid_amount"`
	RemainingAmount *decimal.Decimal    `json:"remaining_amount"`
	Notes           *string             `json:"notes"`
	Items           []SupplyItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SupplyItemResponse struct {
	ProductID     *string         `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type SupplyResponse struct {
	ID              string               `json:"id"`
	Number          string               `json:"number"`
	Date            string               `json:"date"`
	Status          string               `json:"status"`
	PaymentType     string               `json:"payment_type"`
	Total           decimal.Decimal      `json:"total"`
	PaidAmount      decimal.Decimal      `json:"paid_amount"`
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	SupplierID      *string              `json:"supplier_id"`
	Notes           *string              `json:"notes"`
	CancelledAt     *string              `json:"cancelled_at"`
	Items           []SupplyItemResponse `json:"items"`
	Compensation    *CompensationReport  `json:"compensation,omitempty"`
}

type SupplyListResponse struct {
	Data  []SupplyResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
