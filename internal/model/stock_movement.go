package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock movement kinds.
const (
	MovementSale            = "sale"
	MovementSaleRestore     = "sale_restore"
	MovementPurchase        = "purchase"
	MovementPurchaseRestore = "purchase_restore"
)

// StockMovement records every stock change made by the ledger engine: one row per
// line item per adjustment, never updated.
type StockMovement struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Kind          string     `gorm:"type:varchar(20);not null"`
	Quantity      int        `gorm:"not null"` // positive = in, negative = out
	StockBefore   int        `gorm:"not null"`
	StockAfter    int        `gorm:"not null"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index"`
	ReferenceCode string
	CreatedAt     time.Time
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	assignID(&m.ID)
	return nil
}
