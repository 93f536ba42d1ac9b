package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is money received from a customer.
// Payments are NEVER modified or deleted: corrections are offsetting payments.
type Payment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID  *uuid.UUID      `gorm:"type:uuid;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Notes      *string
	CreatedAt  time.Time
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// SupplierPayment is money paid by the store to a supplier. Append-only.
type SupplierPayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplyID   *uuid.UUID      `gorm:"type:uuid;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Notes      *string
	CreatedAt  time.Time
}

func (p *SupplierPayment) BeforeCreate(_ *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// Receipt is a numbered acknowledgement of money moving between the store and
// a counterparty. EntityType decides which balance it reduces.
type Receipt struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_receipts_tenant_number"`
	Number     string           `gorm:"type:varchar(32);not null;uniqueIndex:idx_receipts_tenant_number"`
	EntityType CounterpartyKind `gorm:"type:varchar(20);not null"`
	EntityID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	Notes      *string
	CreatedAt  time.Time
}

func (r *Receipt) BeforeCreate(_ *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
