package repository

import (
	"context"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplyRepository mirrors InvoiceRepository for purchase documents.
type SupplyRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Supply, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) ([]model.Supply, int64, error)

	// Used inside transactions: callers must pass the tx instance

	CreateTx(tx *gorm.DB, sup *model.Supply) error
	// FindByIDTx loads the supply and its items ordered by position. With
	// lock=true the supply row stays locked until the transaction ends.
	FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID, lock bool) (*model.Supply, error)
	UpdateTx(tx *gorm.DB, sup *model.Supply) error
	ReplaceItemsTx(tx *gorm.DB, sup *model.Supply, items []model.SupplyItem) error
	MarkCancelledTx(tx *gorm.DB, tenantID, id uuid.UUID, at time.Time) error
	DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error

	DB() *gorm.DB
}

type supplyRepo struct{ db *gorm.DB }

func NewSupplyRepository(db *gorm.DB) SupplyRepository { return &supplyRepo{db: db} }

func (r *supplyRepo) DB() *gorm.DB { return r.db }

func (r *supplyRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Supply, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), tenantID, id, false)
}

func (r *supplyRepo) FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID, lock bool) (*model.Supply, error) {
	q := tx
	if lock {
		q = lockForUpdate(tx)
	}
	var sup model.Supply
	if err := q.Where("tenant_id = ? AND id = ?", tenantID, id).First(&sup).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("supply_id = ?", sup.ID).Order("position").Find(&sup.Items).Error; err != nil {
		return nil, err
	}
	return &sup, nil
}

func (r *supplyRepo) CreateTx(tx *gorm.DB, sup *model.Supply) error {
	items := sup.Items
	if err := tx.Omit("Items").Create(sup).Error; err != nil {
		return err
	}
	return r.createItemsTx(tx, sup, items)
}

func (r *supplyRepo) createItemsTx(tx *gorm.DB, sup *model.Supply, items []model.SupplyItem) error {
	for i := range items {
		items[i].SupplyID = sup.ID
		items[i].TenantID = sup.TenantID
		items[i].Position = i
	}
	sup.Items = items
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&sup.Items).Error
}

func (r *supplyRepo) UpdateTx(tx *gorm.DB, sup *model.Supply) error {
	return tx.Model(&model.Supply{}).
		Where("tenant_id = ? AND id = ?", sup.TenantID, sup.ID).
		Updates(map[string]interface{}{
			"date":             sup.Date,
			"payment_type":     sup.PaymentType,
			"total":            sup.Total,
			"paid_amount":      sup.PaidAmount,
			"remaining_amount": sup.RemainingAmount,
			"supplier_id":      sup.SupplierID,
			"notes":            sup.Notes,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *supplyRepo) ReplaceItemsTx(tx *gorm.DB, sup *model.Supply, items []model.SupplyItem) error {
	if err := tx.Where("supply_id = ?", sup.ID).Delete(&model.SupplyItem{}).Error; err != nil {
		return err
	}
	return r.createItemsTx(tx, sup, items)
}

func (r *supplyRepo) MarkCancelledTx(tx *gorm.DB, tenantID, id uuid.UUID, at time.Time) error {
	return tx.Model(&model.Supply{}).Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"status":       model.StatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		}).Error
}

func (r *supplyRepo) DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error {
	if err := tx.Where("supply_id = ?", id).Delete(&model.SupplyItem{}).Error; err != nil {
		return err
	}
	// Payments keep their history; only the link to the document goes away.
	if err := tx.Model(&model.SupplierPayment{}).Where("tenant_id = ? AND supply_id = ?", tenantID, id).
		Update("supply_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Supply{}).Error
}

func (r *supplyRepo) List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) ([]model.Supply, int64, error) {
	var supplies []model.Supply
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Supply{}).Where("tenant_id = ?", tenantID)
	q = applyDocumentFilter(q, filter)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("date DESC, number DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&supplies).Error
	return supplies, total, err
}
