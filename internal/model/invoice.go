package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a sales document.
// Status: "active" | "cancelled"; PaymentType: "cash" | "credit".
// RemainingAmount is only meaningful for credit invoices.
type Invoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_tenant_number"`
	Number          string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_invoices_tenant_number"`
	Date            time.Time       `gorm:"not null;index"`
	Status          string          `gorm:"type:varchar(20);not null;default:'active'"`
	PaymentType     string          `gorm:"type:varchar(20);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index"`
	Notes           *string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`
}

func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// InvoiceItem prices are captured at document time so later product edits do
// not rewrite history. ProductID is nil for free-text lines.
type InvoiceItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     *uuid.UUID      `gorm:"type:uuid;index"`
	ProductName   string          `gorm:"not null"`
	Quantity      int             `gorm:"not null"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Position      int             `gorm:"not null;default:0"`
}

func (it *InvoiceItem) BeforeCreate(_ *gorm.DB) error {
	assignID(&it.ID)
	return nil
}
