package repository

import (
	"context"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) ([]model.Invoice, int64, error)

	// ListActiveInRange returns active invoices with from <= date < until and
	// their items, for statistics.
	ListActiveInRange(ctx context.Context, tenantID uuid.UUID, from, until time.Time) ([]model.Invoice, error)

	// Used inside transactions: callers must pass the tx instance

	CreateTx(tx *gorm.DB, inv *model.Invoice) error
	// FindByIDTx loads the invoice and its items ordered by position. With
	// lock=true the invoice row stays locked until the transaction ends.
	FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID, lock bool) (*model.Invoice, error)
	UpdateTx(tx *gorm.DB, inv *model.Invoice) error
	ReplaceItemsTx(tx *gorm.DB, inv *model.Invoice, items []model.InvoiceItem) error
	MarkCancelledTx(tx *gorm.DB, tenantID, id uuid.UUID, at time.Time) error
	DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error

	DB() *gorm.DB
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), tenantID, id, false)
}

func (r *invoiceRepo) FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID, lock bool) (*model.Invoice, error) {
	q := tx
	if lock {
		q = lockForUpdate(tx)
	}
	var inv model.Invoice
	if err := q.Where("tenant_id = ? AND id = ?", tenantID, id).First(&inv).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", inv.ID).Order("position").Find(&inv.Items).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) CreateTx(tx *gorm.DB, inv *model.Invoice) error {
	items := inv.Items
	if err := tx.Omit("Items").Create(inv).Error; err != nil {
		return err
	}
	return r.createItemsTx(tx, inv, items)
}

func (r *invoiceRepo) createItemsTx(tx *gorm.DB, inv *model.Invoice, items []model.InvoiceItem) error {
	for i := range items {
		items[i].InvoiceID = inv.ID
		items[i].TenantID = inv.TenantID
		items[i].Position = i
	}
	inv.Items = items
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&inv.Items).Error
}

func (r *invoiceRepo) UpdateTx(tx *gorm.DB, inv *model.Invoice) error {
	return tx.Model(&model.Invoice{}).
		Where("tenant_id = ? AND id = ?", inv.TenantID, inv.ID).
		Updates(map[string]interface{}{
			"date":             inv.Date,
			"payment_type":     inv.PaymentType,
			"total":            inv.Total,
			"paid_amount":      inv.PaidAmount,
			"remaining_amount": inv.RemainingAmount,
			"customer_id":      inv.CustomerID,
			"notes":            inv.Notes,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *invoiceRepo) ReplaceItemsTx(tx *gorm.DB, inv *model.Invoice, items []model.InvoiceItem) error {
	if err := tx.Where("invoice_id = ?", inv.ID).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	return r.createItemsTx(tx, inv, items)
}

func (r *invoiceRepo) MarkCancelledTx(tx *gorm.DB, tenantID, id uuid.UUID, at time.Time) error {
	return tx.Model(&model.Invoice{}).Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"status":       model.StatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		}).Error
}

func (r *invoiceRepo) DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error {
	if err := tx.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	// Payments keep their history; only the link to the document goes away.
	if err := tx.Model(&model.Payment{}).Where("tenant_id = ? AND invoice_id = ?", tenantID, id).
		Update("invoice_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Invoice{}).Error
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("tenant_id = ?", tenantID)
	q = applyDocumentFilter(q, filter)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("date DESC, number DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepo) ListActiveInRange(ctx context.Context, tenantID uuid.UUID, from, until time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND date >= ? AND date < ?", tenantID, model.StatusActive, from, until).
		Preload("Items").
		Order("date").
		Find(&invoices).Error
	return invoices, err
}
