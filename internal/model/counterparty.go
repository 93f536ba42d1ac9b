package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer buys on credit. Balance > 0 means the customer owes the store.
// Balance is written only through repository.CounterpartyRepository.AdjustBalanceTx.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Phone     *string
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Supplier sells to the store. Balance > 0 means the store owes the supplier.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Phone     *string
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Supplier) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// CounterpartyKind selects the customers or suppliers table.
type CounterpartyKind string

const (
	KindCustomer CounterpartyKind = "customer"
	KindSupplier CounterpartyKind = "supplier"
)

// Table returns the table holding balances of this kind.
func (k CounterpartyKind) Table() string {
	if k == KindSupplier {
		return "suppliers"
	}
	return "customers"
}

func (k CounterpartyKind) Valid() bool {
	return k == KindCustomer || k == KindSupplier
}
