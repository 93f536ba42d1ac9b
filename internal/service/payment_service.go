package service

import (
	"context"
	"fmt"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"
	"ledgerpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService posts money movements against counterparties. Every posting
// is an append-only row plus an atomic balance decrement in one transaction.
type PaymentService interface {
	PostCustomerPayment(ctx context.Context, tenantID uuid.UUID, req dto.PaymentRequest) (*dto.PaymentResponse, error)
	PostSupplierPayment(ctx context.Context, tenantID uuid.UUID, req dto.SupplierPaymentRequest) (*dto.SupplierPaymentResponse, error)
	PostReceipt(ctx context.Context, tenantID uuid.UUID, req dto.ReceiptRequest) (*dto.ReceiptResponse, error)
	ListCustomerPayments(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) (*dto.PaymentListResponse, error)
	ListPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.PaymentListResponse, error)
	ListSupplierPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.SupplierPaymentListResponse, error)
	ListReceipts(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.ReceiptListResponse, error)
}

type paymentService struct {
	repo     repository.PaymentRepository
	invoices repository.InvoiceRepository
	supplies repository.SupplyRepository
	sequence SequenceService
	balances BalanceService
	events   EventPublisher
	timeout  time.Duration
}

func NewPaymentService(
	repo repository.PaymentRepository,
	invoices repository.InvoiceRepository,
	supplies repository.SupplyRepository,
	sequence SequenceService,
	balances BalanceService,
	events EventPublisher,
	timeout time.Duration,
) PaymentService {
	return &paymentService{
		repo:     repo,
		invoices: invoices,
		supplies: supplies,
		sequence: sequence,
		balances: balances,
		events:   events,
		timeout:  timeout,
	}
}

func positiveAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = money(amount)
	if !amount.IsPositive() {
		return decimal.Zero, invalid("amount", "must be greater than zero")
	}
	return amount, nil
}

func (s *paymentService) PostCustomerPayment(ctx context.Context, tenantID uuid.UUID, req dto.PaymentRequest) (*dto.PaymentResponse, error) {
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	invoiceID, err := parseOptionalID("invoice_id", req.InvoiceID)
	if err != nil {
		return nil, err
	}
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var p model.Payment
	var balance decimal.Decimal
	err = runTx(ctx, s.repo.DB(), s.timeout, "post customer payment", func(tx *gorm.DB) error {
		if err := s.balances.RequireTx(tx, tenantID, model.KindCustomer, customerID); err != nil {
			return err
		}
		if invoiceID != nil {
			inv, err := s.invoices.FindByIDTx(tx, tenantID, *invoiceID, false)
			if err != nil {
				return lookupError(err, "invoice", *invoiceID, "find invoice")
			}
			if inv.CustomerID == nil || *inv.CustomerID != customerID {
				return invalid("invoice_id", fmt.Sprintf("invoice %s does not belong to this customer", inv.Number))
			}
		}

		p = model.Payment{
			TenantID:   tenantID,
			CustomerID: customerID,
			InvoiceID:  invoiceID,
			Amount:     amount,
			Notes:      req.Notes,
		}
		if err := s.repo.CreatePaymentTx(tx, &p); err != nil {
			return err
		}
		var err error
		balance, _, err = s.balances.AdjustTx(tx, tenantID, model.KindCustomer, customerID, amount.Neg(), nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("customer_id", customerID.String()).
		Str("amount", amount.String()).
		Msg("customer payment posted")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventPaymentPosted, p.ID, "", false)
	resp := paymentToResponse(&p)
	resp.Balance = balance
	return &resp, nil
}

func (s *paymentService) PostSupplierPayment(ctx context.Context, tenantID uuid.UUID, req dto.SupplierPaymentRequest) (*dto.SupplierPaymentResponse, error) {
	supplierID, err := parseID("supplier_id", req.SupplierID)
	if err != nil {
		return nil, err
	}
	supplyID, err := parseOptionalID("supply_id", req.SupplyID)
	if err != nil {
		return nil, err
	}
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var p model.SupplierPayment
	var balance decimal.Decimal
	err = runTx(ctx, s.repo.DB(), s.timeout, "post supplier payment", func(tx *gorm.DB) error {
		if err := s.balances.RequireTx(tx, tenantID, model.KindSupplier, supplierID); err != nil {
			return err
		}
		if supplyID != nil {
			sup, err := s.supplies.FindByIDTx(tx, tenantID, *supplyID, false)
			if err != nil {
				return lookupError(err, "supply", *supplyID, "find supply")
			}
			if sup.SupplierID == nil || *sup.SupplierID != supplierID {
				return invalid("supply_id", fmt.Sprintf("supply %s does not belong to this supplier", sup.Number))
			}
		}

		p = model.SupplierPayment{
			TenantID:   tenantID,
			SupplierID: supplierID,
			SupplyID:   supplyID,
			Amount:     amount,
			Notes:      req.Notes,
		}
		if err := s.repo.CreateSupplierPaymentTx(tx, &p); err != nil {
			return err
		}
		var err error
		balance, _, err = s.balances.AdjustTx(tx, tenantID, model.KindSupplier, supplierID, amount.Neg(), nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("supplier_id", supplierID.String()).
		Str("amount", amount.String()).
		Msg("supplier payment posted")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventPaymentPosted, p.ID, "", false)
	return &dto.SupplierPaymentResponse{
		ID:         p.ID.String(),
		SupplierID: p.SupplierID.String(),
		SupplyID:   optionalID(p.SupplyID),
		Amount:     p.Amount,
		Notes:      p.Notes,
		Balance:    balance,
		CreatedAt:  p.CreatedAt.UTC().Format(timeLayout),
	}, nil
}

// PostReceipt issues a numbered receipt. A customer receipt is money received
// from the customer; a supplier receipt acknowledges money paid to the
// supplier. Both reduce the counterparty balance.
func (s *paymentService) PostReceipt(ctx context.Context, tenantID uuid.UUID, req dto.ReceiptRequest) (*dto.ReceiptResponse, error) {
	kind := model.CounterpartyKind(req.EntityType)
	if !kind.Valid() {
		return nil, invalid("entity_type", "must be customer or supplier")
	}
	entityID, err := parseID("entity_id", req.EntityID)
	if err != nil {
		return nil, err
	}
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var rc model.Receipt
	var balance decimal.Decimal
	err = runTx(ctx, s.repo.DB(), s.timeout, "post receipt", func(tx *gorm.DB) error {
		if err := s.balances.RequireTx(tx, tenantID, kind, entityID); err != nil {
			return err
		}
		number, err := s.sequence.Next(ctx, tx, tenantID, SequenceReceipt)
		if err != nil {
			return err
		}
		rc = model.Receipt{
			TenantID:   tenantID,
			Number:     number,
			EntityType: kind,
			EntityID:   entityID,
			Amount:     amount,
			Notes:      req.Notes,
		}
		if err := s.repo.CreateReceiptTx(tx, &rc); err != nil {
			return err
		}
		balance, _, err = s.balances.AdjustTx(tx, tenantID, kind, entityID, amount.Neg(), nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("number", rc.Number).
		Str("entity_type", string(kind)).
		Str("amount", amount.String()).
		Msg("receipt posted")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventReceiptPosted, rc.ID, rc.Number, false)
	return &dto.ReceiptResponse{
		ID:         rc.ID.String(),
		Number:     rc.Number,
		EntityType: string(rc.EntityType),
		EntityID:   rc.EntityID.String(),
		Amount:     rc.Amount,
		Notes:      rc.Notes,
		Balance:    balance,
		CreatedAt:  rc.CreatedAt.UTC().Format(timeLayout),
	}, nil
}

func (s *paymentService) ListCustomerPayments(ctx context.Context, tenantID, customerID uuid.UUID, page, limit int) (*dto.PaymentListResponse, error) {
	page, limit = normalizePage(page, limit)
	if _, err := s.balances.Balance(ctx, tenantID, model.KindCustomer, customerID); err != nil {
		return nil, err
	}
	payments, total, err := s.repo.ListByCustomer(ctx, tenantID, customerID, page, limit)
	if err != nil {
		return nil, classifyStoreError("list payments", err)
	}
	resp := &dto.PaymentListResponse{
		Data:  make([]dto.PaymentResponse, 0, len(payments)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range payments {
		resp.Data = append(resp.Data, paymentToResponse(&payments[i]))
	}
	return resp, nil
}

func (s *paymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.PaymentListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	payments, total, err := s.repo.ListPayments(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list payments", err)
	}
	resp := &dto.PaymentListResponse{
		Data:  make([]dto.PaymentResponse, 0, len(payments)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range payments {
		resp.Data = append(resp.Data, paymentToResponse(&payments[i]))
	}
	return resp, nil
}

func (s *paymentService) ListSupplierPayments(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.SupplierPaymentListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	payments, total, err := s.repo.ListSupplierPayments(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list supplier payments", err)
	}
	resp := &dto.SupplierPaymentListResponse{
		Data:  make([]dto.SupplierPaymentResponse, 0, len(payments)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for _, p := range payments {
		resp.Data = append(resp.Data, dto.SupplierPaymentResponse{
			ID:         p.ID.String(),
			SupplierID: p.SupplierID.String(),
			SupplyID:   optionalID(p.SupplyID),
			Amount:     p.Amount,
			Notes:      p.Notes,
			CreatedAt:  p.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return resp, nil
}

func (s *paymentService) ListReceipts(ctx context.Context, tenantID uuid.UUID, filter dto.PaymentFilter) (*dto.ReceiptListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	receipts, total, err := s.repo.ListReceipts(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list receipts", err)
	}
	resp := &dto.ReceiptListResponse{
		Data:  make([]dto.ReceiptResponse, 0, len(receipts)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for _, rc := range receipts {
		resp.Data = append(resp.Data, dto.ReceiptResponse{
			ID:         rc.ID.String(),
			Number:     rc.Number,
			EntityType: string(rc.EntityType),
			EntityID:   rc.EntityID.String(),
			Amount:     rc.Amount,
			Notes:      rc.Notes,
			CreatedAt:  rc.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return resp, nil
}

func paymentToResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:         p.ID.String(),
		CustomerID: p.CustomerID.String(),
		InvoiceID:  optionalID(p.InvoiceID),
		Amount:     p.Amount,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt.UTC().Format(timeLayout),
	}
}
