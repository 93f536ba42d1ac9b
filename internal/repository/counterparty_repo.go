package repository

import (
	"context"
	"fmt"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CounterpartyRepository covers customers and suppliers. Both tables share the
// balance semantics, so the balance operations are keyed by kind.
type CounterpartyRepository interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	FindCustomer(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error)
	FindSupplier(ctx context.Context, tenantID, id uuid.UUID) (*model.Supplier, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID, filter dto.CounterpartyFilter) ([]model.Customer, int64, error)
	ListSuppliers(ctx context.Context, tenantID uuid.UUID, filter dto.CounterpartyFilter) ([]model.Supplier, int64, error)
	// UpdateFields edits name/phone columns of a customer or supplier. Returns
	// gorm.ErrRecordNotFound when no row matched.
	UpdateFields(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, fields map[string]interface{}) error

	ExistsTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (bool, error)

	// AdjustBalanceTx applies balance = balance + delta in one statement.
	// found=false means the counterparty does not exist.
	AdjustBalanceTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, delta decimal.Decimal) (after decimal.Decimal, found bool, err error)

	DB() *gorm.DB
}

type counterpartyRepo struct{ db *gorm.DB }

func NewCounterpartyRepository(db *gorm.DB) CounterpartyRepository {
	return &counterpartyRepo{db: db}
}

func (r *counterpartyRepo) DB() *gorm.DB { return r.db }

func (r *counterpartyRepo) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *counterpartyRepo) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *counterpartyRepo) FindCustomer(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *counterpartyRepo) FindSupplier(ctx context.Context, tenantID, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *counterpartyRepo) ListCustomers(ctx context.Context, tenantID uuid.UUID, filter dto.CounterpartyFilter) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64
	q := nameLike(r.db.WithContext(ctx).Model(&model.Customer{}).Where("tenant_id = ?", tenantID), filter.Name)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).Find(&customers).Error
	return customers, total, err
}

func (r *counterpartyRepo) ListSuppliers(ctx context.Context, tenantID uuid.UUID, filter dto.CounterpartyFilter) ([]model.Supplier, int64, error) {
	var suppliers []model.Supplier
	var total int64
	q := nameLike(r.db.WithContext(ctx).Model(&model.Supplier{}).Where("tenant_id = ?", tenantID), filter.Name)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).Find(&suppliers).Error
	return suppliers, total, err
}

func (r *counterpartyRepo) UpdateFields(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, fields map[string]interface{}) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown counterparty kind %q", kind)
	}
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Table(kind.Table()).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *counterpartyRepo) ExistsTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown counterparty kind %q", kind)
	}
	var n int64
	err := tx.Table(kind.Table()).Where("tenant_id = ? AND id = ?", tenantID, id).Count(&n).Error
	return n > 0, err
}

func (r *counterpartyRepo) AdjustBalanceTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	if !kind.Valid() {
		return decimal.Zero, false, fmt.Errorf("unknown counterparty kind %q", kind)
	}
	res := tx.Table(kind.Table()).Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return decimal.Zero, false, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, false, nil
	}
	var after decimal.Decimal
	if err := tx.Table(kind.Table()).Select("balance").
		Where("tenant_id = ? AND id = ?", tenantID, id).Row().Scan(&after); err != nil {
		return decimal.Zero, true, err
	}
	return after, true, nil
}
