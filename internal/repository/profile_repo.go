package repository

import (
	"context"
	"fmt"

	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter columns on tenant_profiles.
const (
	CounterInvoice = "invoice_counter"
	CounterSupply  = "supply_counter"
	CounterReceipt = "receipt_counter"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, tenantID uuid.UUID) (*model.TenantProfile, error)

	// EnsureTx inserts the tenant profile with all counters at 1 if it does not
	// exist yet. It never touches an existing row.
	EnsureTx(tx *gorm.DB, tenantID uuid.UUID) error

	// NextCounterTx advances the counter column by one with a single UPDATE and
	// returns the value it had before the increment. The UPDATE holds the row
	// lock until the surrounding transaction ends, so concurrent callers never
	// observe the same value.
	NextCounterTx(tx *gorm.DB, tenantID uuid.UUID, column string) (int64, error)

	DB() *gorm.DB
}

type profileRepo struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &profileRepo{db: db} }

func (r *profileRepo) DB() *gorm.DB { return r.db }

func (r *profileRepo) FindByID(ctx context.Context, tenantID uuid.UUID) (*model.TenantProfile, error) {
	var p model.TenantProfile
	err := r.db.WithContext(ctx).First(&p, "id = ?", tenantID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) EnsureTx(tx *gorm.DB, tenantID uuid.UUID) error {
	p := model.TenantProfile{
		ID:             tenantID,
		InvoiceCounter: 1,
		SupplyCounter:  1,
		ReceiptCounter: 1,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}

func (r *profileRepo) NextCounterTx(tx *gorm.DB, tenantID uuid.UUID, column string) (int64, error) {
	switch column {
	case CounterInvoice, CounterSupply, CounterReceipt:
	default:
		return 0, fmt.Errorf("unknown counter column %q", column)
	}

	res := tx.Model(&model.TenantProfile{}).Where("id = ?", tenantID).
		Update(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.EnsureTx(tx, tenantID); err != nil {
			return 0, err
		}
		res = tx.Model(&model.TenantProfile{}).Where("id = ?", tenantID).
			Update(column, gorm.Expr(column+" + 1"))
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, gorm.ErrRecordNotFound
		}
	}

	var after int64
	if err := tx.Model(&model.TenantProfile{}).Select(column).
		Where("id = ?", tenantID).Row().Scan(&after); err != nil {
		return 0, err
	}
	return after - 1, nil
}
