package repository

import (
	"context"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
// Stock is only ever changed through AdjustStockTx.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error)
	// UpdateFields writes the given columns. Returns gorm.ErrRecordNotFound
	// when no row matched.
	UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]interface{}) error

	// Used inside transactions: callers must pass the tx instance

	// FindByIDsTx loads the given products; with lock=true the rows stay locked
	// until the transaction ends. Missing ids are simply absent from the result.
	FindByIDsTx(tx *gorm.DB, tenantID uuid.UUID, ids []uuid.UUID, lock bool) ([]model.Product, error)

	// AdjustStockTx applies stock = stock + delta in one statement and returns
	// the resulting stock. found=false means the product does not exist.
	AdjustStockTx(tx *gorm.DB, tenantID, id uuid.UUID, delta int) (after int, found bool, err error)

	UpdatePurchasePriceTx(tx *gorm.DB, tenantID, id uuid.UUID, price decimal.Decimal) error

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("tenant_id = ?", tenantID)
	switch filter.Active {
	case "false":
		q = q.Where("active = ?", false)
	case "all":
	default:
		q = q.Where("active = ?", true)
	}
	q = nameLike(q, filter.Name)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).Find(&products).Error
	return products, total, err
}

func (r *productRepo) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Product{}).
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

func (r *productRepo) FindByIDsTx(tx *gorm.DB, tenantID uuid.UUID, ids []uuid.UUID, lock bool) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := tx
	if lock {
		q = lockForUpdate(tx)
	}
	var products []model.Product
	// Fixed order keeps lock acquisition consistent between transactions.
	err := q.Where("tenant_id = ? AND id IN ?", tenantID, ids).Order("id").Find(&products).Error
	return products, err
}

func (r *productRepo) AdjustStockTx(tx *gorm.DB, tenantID, id uuid.UUID, delta int) (int, bool, error) {
	res := tx.Model(&model.Product{}).Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	var after int
	if err := tx.Model(&model.Product{}).Select("stock").
		Where("tenant_id = ? AND id = ?", tenantID, id).Row().Scan(&after); err != nil {
		return 0, true, err
	}
	return after, true, nil
}

func (r *productRepo) UpdatePurchasePriceTx(tx *gorm.DB, tenantID, id uuid.UUID, price decimal.Decimal) error {
	return tx.Model(&model.Product{}).Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("purchase_price", price).Error
}
