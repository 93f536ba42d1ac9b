package repository

import (
	"context"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository stores customer payments, supplier payments and receipts.
// All three are append-only.
type PaymentRepository interface {
	CreatePaymentTx(tx *gorm.DB, p *model.Payment) error
	CreateSupplierPaymentTx(tx *gorm.DB, p *model.SupplierPayment) error
	CreateReceiptTx(tx *gorm.DB, rc *model.Receipt) error
	ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) ([]model.Payment, int64, error)

	// Tenant-wide listings, newest first. filter.EntityID narrows to one
	// customer, supplier or receipt entity.
	ListPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.Payment, int64, error)
	ListSupplierPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.SupplierPayment, int64, error)
	ListReceipts(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.Receipt, int64, error)
	DB() *gorm.DB
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) DB() *gorm.DB { return r.db }

func (r *paymentRepo) CreatePaymentTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Create(p).Error
}

func (r *paymentRepo) CreateSupplierPaymentTx(tx *gorm.DB, p *model.SupplierPayment) error {
	return tx.Create(p).Error
}

func (r *paymentRepo) CreateReceiptTx(tx *gorm.DB, rc *model.Receipt) error {
	return tx.Create(rc).Error
}

func (r *paymentRepo) ListByCustomer(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&payments).Error
	return payments, total, err
}

func (r *paymentRepo) ListPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.Payment, int64, error) {
	var payments []model.Payment
	total, err := r.listPage(ctx, &model.Payment{}, &payments, tenantID, "customer_id", filter)
	return payments, total, err
}

func (r *paymentRepo) ListSupplierPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.SupplierPayment, int64, error) {
	var payments []model.SupplierPayment
	total, err := r.listPage(ctx, &model.SupplierPayment{}, &payments, tenantID, "supplier_id", filter)
	return payments, total, err
}

func (r *paymentRepo) ListReceipts(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) ([]model.Receipt, int64, error) {
	var receipts []model.Receipt
	total, err := r.listPage(ctx, &model.Receipt{}, &receipts, tenantID, "entity_id", filter)
	return receipts, total, err
}

// listPage counts and loads one page of an append-only table into dest.
func (r *paymentRepo) listPage(ctx context.Context, table, dest interface{}, tenantID uuid.UUID, entityColumn string, filter dto.PaymentFilter) (int64, error) {
	q := r.db.WithContext(ctx).Model(table).Where("tenant_id = ?", tenantID)
	if filter.EntityID != "" {
		q = q.Where(entityColumn+" = ?", filter.EntityID)
	}
	if filter.EntityType != "" {
		if _, ok := table.(*model.Receipt); ok {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
	}
	q = applyCreatedRange(q, filter.From, filter.To)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}
	err := q.Order("created_at DESC, id").Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).Find(dest).Error
	return total, err
}
