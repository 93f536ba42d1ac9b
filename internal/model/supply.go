package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supply is a purchase document: it brings stock in and, when bought on
// credit, increases what the store owes the supplier.
type Supply struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_supplies_tenant_number"`
	Number          string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_supplies_tenant_number"`
	Date            time.Time       `gorm:"not null;index"`
	Status          string          `gorm:"type:varchar(20);not null;default:'active'"`
	PaymentType     string          `gorm:"type:varchar(20);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	SupplierID      *uuid.UUID      `gorm:"type:uuid;index"`
	Notes           *string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []SupplyItem `gorm:"foreignKey:SupplyID"`
}

func (s *Supply) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type SupplyItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null"`
	SupplyID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     *uuid.UUID      `gorm:"type:uuid;index"`
	ProductName   string          `gorm:"not null"`
	Quantity      int             `gorm:"not null"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Position      int             `gorm:"not null;default:0"`
}

func (it *SupplyItem) BeforeCreate(_ *gorm.DB) error {
	assignID(&it.ID)
	return nil
}
