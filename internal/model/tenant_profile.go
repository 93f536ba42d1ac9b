package model

import (
	"time"

	"github.com/google/uuid"
)

// TenantProfile holds the per-tenant document counters.
// Each counter stores the NEXT number to issue; it is only ever advanced with
// an in-SQL increment (see repository.ProfileRepository.NextCounterTx).
type TenantProfile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string
	InvoiceCounter int64 `gorm:"not null;default:1"`
	SupplyCounter  int64 `gorm:"not null;default:1"`
	ReceiptCounter int64 `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (TenantProfile) TableName() string { return "tenant_profiles" }
