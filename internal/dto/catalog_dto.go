package dto

import "github.com/shopspring/decimal"

// ─── Products ────────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name          string          `json:"name"           validate:"required,min=1,max=200"`
	Stock         int             `json:"stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"min=0"`
	SalePrice     decimal.Decimal `json:"sale_price"     validate:"min=0"`
}

type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Stock         int             `json:"stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Active        bool            `json:"active"`
}

// ─── Customers / Suppliers ───────────────────────────────────────────────────

// CreateCounterpartyRequest creates a customer or a supplier. Balances always
// start at zero and only move through documents and payments.
type CreateCounterpartyRequest struct {
	Name  string  `json:"name"  validate:"required,min=1,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

type CounterpartyResponse struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Phone   *string         `json:"phone"`
	Balance decimal.Decimal `json:"balance"`
}

// UpdateProductRequest is the explicit product patch. Nil fields keep their
// stored value. Stock is not editable: it only moves through documents.
type UpdateProductRequest struct {
	Name          *string          `json:"name"           validate:"omitempty,min=1,max=200"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	Active        *bool            `json:"active"`
}

// UpdateCounterpartyRequest edits a customer or supplier. Balance is not
// editable: it only moves through documents and payments.
type UpdateCounterpartyRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

type ProductFilter struct {
	Name   string `form:"name"`                // case-insensitive substring
	Active string `form:"active,default=true"` // true | false | all
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type CounterpartyFilter struct {
	Name  string `form:"name"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CounterpartyListResponse struct {
	Data  []CounterpartyResponse `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}
