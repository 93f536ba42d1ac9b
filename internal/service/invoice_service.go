package service

import (
	"context"
	"fmt"
	"strings"
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

// InvoiceService is the lifecycle controller of sales documents.
type InvoiceService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*dto.InvoiceResponse, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (*dto.DeleteDocumentResponse, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*dto.InvoiceResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) (*dto.InvoiceListResponse, error)
}

type invoiceService struct {
	repo      repository.InvoiceRepository
	products  repository.ProductRepository
	sequence  SequenceService
	inventory InventoryService
	balances  BalanceService
	events    EventPublisher
	timeout   time.Duration
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	products repository.ProductRepository,
	sequence SequenceService,
	inventory InventoryService,
	balances BalanceService,
	events EventPublisher,
	timeout time.Duration,
) InvoiceService {
	return &invoiceService{
		repo:      repo,
		products:  products,
		sequence:  sequence,
		inventory: inventory,
		balances:  balances,
		events:    events,
		timeout:   timeout,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────
// One transaction:
//   1. Resolve items against products (defaults for name and prices)
//   2. Settle paid / remaining, check the customer
//   3. Issue the invoice number
//   4. Insert invoice + items
//   5. Deduct stock, add the credit remainder to the customer balance

func (s *invoiceService) Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if req.PaymentType != model.PaymentCash && req.PaymentType != model.PaymentCredit {
		return nil, invalid("payment_type", "must be cash or credit")
	}
	customerID, err := parseOptionalID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}

	var inv model.Invoice
	var comp *Compensation
	err = runTx(ctx, s.repo.DB(), s.timeout, "create invoice", func(tx *gorm.DB) error {
		items, total, err := s.resolveItems(tx, tenantID, req.Items, nil)
		if err != nil {
			return err
		}
		st, err := settle(req.PaymentType, total, req.PaidAmount, req.RemainingAmount, decimal.Zero)
		if err != nil {
			return err
		}
		if err := s.checkCustomerTx(tx, tenantID, customerID, req.PaymentType, st); err != nil {
			return err
		}

		number, err := s.sequence.Next(ctx, tx, tenantID, SequenceInvoice)
		if err != nil {
			return err
		}

		inv = model.Invoice{
			TenantID:        tenantID,
			Number:          number,
			Date:            documentDate(req.Date),
			Status:          model.StatusActive,
			PaymentType:     req.PaymentType,
			Total:           total,
			PaidAmount:      st.Paid,
			RemainingAmount: st.Remaining,
			CustomerID:      customerID,
			Notes:           req.Notes,
			Items:           items,
		}
		if err := s.repo.CreateTx(tx, &inv); err != nil {
			return err
		}

		comp = newCompensation(tenantID, number)
		return s.applyEffectsTx(tx, &inv, comp)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("number", inv.Number).
		Str("total", inv.Total.String()).
		Msg("invoice created")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventInvoiceCreated, inv.ID, inv.Number, comp.Partial())
	return invoiceToResponse(&inv, comp), nil
}

// ── Update ────────────────────────────────────────────────────────────────────
// Stock sufficiency of the new lines is checked (with product rows locked)
// before the old effects are reversed, so a rejected update writes nothing.

func (s *invoiceService) Update(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if req.PaymentType != nil && *req.PaymentType != model.PaymentCash && *req.PaymentType != model.PaymentCredit {
		return nil, invalid("payment_type", "must be cash or credit")
	}
	newCustomerID, err := parseOptionalID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var comp *Compensation
	err = runTx(ctx, s.repo.DB(), s.timeout, "update invoice", func(tx *gorm.DB) error {
		var err error
		inv, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "invoice", id, "find invoice")
		}
		if inv.Status != model.StatusActive {
			return &ConflictError{Reason: fmt.Sprintf("invoice %s is cancelled and cannot be updated", inv.Number)}
		}

		// Without new lines the stored ones stay and stock is not touched.
		linesChanged := req.Items != nil
		items, total := inv.Items, inv.Total
		if linesChanged {
			items, total, err = s.resolveItems(tx, tenantID, req.Items, inv.Items)
			if err != nil {
				return err
			}
		}

		paymentType := inv.PaymentType
		if req.PaymentType != nil {
			paymentType = *req.PaymentType
		}
		customerID := inv.CustomerID
		if req.CustomerID != nil {
			customerID = newCustomerID
		}
		fallbackPaid := inv.PaidAmount
		if paymentType != inv.PaymentType {
			fallbackPaid = decimal.Zero
		}
		st, err := settle(paymentType, total, req.PaidAmount, req.RemainingAmount, fallbackPaid)
		if err != nil {
			return err
		}
		if err := s.checkCustomerTx(tx, tenantID, customerID, paymentType, st); err != nil {
			return err
		}

		comp = newCompensation(tenantID, inv.Number)
		if linesChanged {
			if err := s.inventory.CheckAvailabilityTx(tx, tenantID, invoiceStockLines(inv.Items), invoiceStockLines(items)); err != nil {
				return err
			}
			if err := s.reverseStockTx(tx, inv, comp); err != nil {
				return err
			}
		}
		if err := s.reverseBalanceTx(tx, inv, comp); err != nil {
			return err
		}

		if req.Date != nil {
			inv.Date = documentDate(req.Date)
		}
		if req.Notes != nil {
			inv.Notes = req.Notes
		}
		inv.PaymentType = paymentType
		inv.CustomerID = customerID
		inv.Total = total
		inv.PaidAmount = st.Paid
		inv.RemainingAmount = st.Remaining
		if err := s.repo.UpdateTx(tx, inv); err != nil {
			return err
		}
		if !linesChanged {
			return s.applyBalanceTx(tx, inv, comp)
		}
		if err := s.repo.ReplaceItemsTx(tx, inv, items); err != nil {
			return err
		}
		return s.applyEffectsTx(tx, inv, comp)
	})
	if err != nil {
		return nil, err
	}

	publishLedgerEvent(ctx, s.events, tenantID, worker.EventInvoiceUpdated, inv.ID, inv.Number, comp.Partial())
	return invoiceToResponse(inv, comp), nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func (s *invoiceService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	var inv *model.Invoice
	var comp *Compensation
	err := runTx(ctx, s.repo.DB(), s.timeout, "cancel invoice", func(tx *gorm.DB) error {
		var err error
		inv, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "invoice", id, "find invoice")
		}
		if inv.Status == model.StatusCancelled {
			return &ConflictError{Reason: fmt.Sprintf("invoice %s is already cancelled", inv.Number)}
		}

		comp = newCompensation(tenantID, inv.Number)
		if err := s.reverseEffectsTx(tx, inv, comp); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.repo.MarkCancelledTx(tx, tenantID, id, now); err != nil {
			return err
		}
		inv.Status = model.StatusCancelled
		inv.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tenant_id", tenantID.String()).Str("number", inv.Number).Msg("invoice cancelled")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventInvoiceCancelled, inv.ID, inv.Number, comp.Partial())
	return invoiceToResponse(inv, comp), nil
}

// ── Delete ────────────────────────────────────────────────────────────────────
// Allowed in any status. Only an active invoice still has effects to reverse.

func (s *invoiceService) Delete(ctx context.Context, tenantID, id uuid.UUID) (*dto.DeleteDocumentResponse, error) {
	var inv *model.Invoice
	var comp *Compensation
	compensated := false
	err := runTx(ctx, s.repo.DB(), s.timeout, "delete invoice", func(tx *gorm.DB) error {
		var err error
		inv, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "invoice", id, "find invoice")
		}

		comp = newCompensation(tenantID, inv.Number)
		if inv.Status == model.StatusActive {
			if err := s.reverseEffectsTx(tx, inv, comp); err != nil {
				return err
			}
			compensated = true
		}
		return s.repo.DeleteTx(tx, tenantID, id)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("number", inv.Number).
		Bool("compensated", compensated).
		Msg("invoice deleted")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventInvoiceDeleted, inv.ID, inv.Number, comp.Partial())
	return &dto.DeleteDocumentResponse{
		ID:           inv.ID.String(),
		Number:       inv.Number,
		Compensated:  compensated,
		Compensation: comp.Report(),
	}, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupError(err, "invoice", id, "find invoice")
	}
	return invoiceToResponse(inv, nil), nil
}

func (s *invoiceService) List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) (*dto.InvoiceListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	invoices, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list invoices", err)
	}
	resp := &dto.InvoiceListResponse{
		Data:  make([]dto.InvoiceResponse, 0, len(invoices)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range invoices {
		resp.Data = append(resp.Data, *invoiceToResponse(&invoices[i], nil))
	}
	return resp, nil
}

// ── Effects ───────────────────────────────────────────────────────────────────

// applyEffectsTx deducts stock for the invoice lines and adds the credit
// remainder to the customer.
func (s *invoiceService) applyEffectsTx(tx *gorm.DB, inv *model.Invoice, comp *Compensation) error {
	ref := StockRef{DocumentID: inv.ID, Number: inv.Number, Kind: model.MovementSale}
	if err := s.inventory.ApplyTx(tx, inv.TenantID, invoiceStockLines(inv.Items), Deduct, ref, comp); err != nil {
		return err
	}
	return s.applyBalanceTx(tx, inv, comp)
}

// reverseEffectsTx undoes applyEffectsTx using the stored lines and amounts.
func (s *invoiceService) reverseEffectsTx(tx *gorm.DB, inv *model.Invoice, comp *Compensation) error {
	if err := s.reverseStockTx(tx, inv, comp); err != nil {
		return err
	}
	return s.reverseBalanceTx(tx, inv, comp)
}

func (s *invoiceService) reverseStockTx(tx *gorm.DB, inv *model.Invoice, comp *Compensation) error {
	ref := StockRef{DocumentID: inv.ID, Number: inv.Number, Kind: model.MovementSaleRestore}
	return s.inventory.ApplyTx(tx, inv.TenantID, invoiceStockLines(inv.Items), Restore, ref, comp)
}

func (s *invoiceService) applyBalanceTx(tx *gorm.DB, inv *model.Invoice, comp *Compensation) error {
	return s.adjustCustomerTx(tx, inv, DocumentDelta(inv.PaymentType, inv.RemainingAmount), comp)
}

func (s *invoiceService) reverseBalanceTx(tx *gorm.DB, inv *model.Invoice, comp *Compensation) error {
	return s.adjustCustomerTx(tx, inv, DocumentDelta(inv.PaymentType, inv.RemainingAmount).Neg(), comp)
}

func (s *invoiceService) adjustCustomerTx(tx *gorm.DB, inv *model.Invoice, delta decimal.Decimal, comp *Compensation) error {
	if inv.CustomerID == nil || delta.IsZero() {
		return nil
	}
	_, _, err := s.balances.AdjustTx(tx, inv.TenantID, model.KindCustomer, *inv.CustomerID, delta, comp)
	return err
}

// checkCustomerTx enforces that a credit invoice with a remaining amount has
// a customer, and that any referenced customer exists.
func (s *invoiceService) checkCustomerTx(tx *gorm.DB, tenantID uuid.UUID, customerID *uuid.UUID, paymentType string, st settlement) error {
	if customerID == nil {
		if paymentType == model.PaymentCredit && st.Remaining.IsPositive() {
			return invalid("customer_id", "required for credit invoices with a remaining amount")
		}
		return nil
	}
	return s.balances.RequireTx(tx, tenantID, model.KindCustomer, *customerID)
}

// resolveItems validates the requested lines and fills name and prices where
// the request omits them: from the stored line of the same product when the
// document already has one, otherwise from the product row.
func (s *invoiceService) resolveItems(tx *gorm.DB, tenantID uuid.UUID, reqs []dto.InvoiceItemRequest, stored []model.InvoiceItem) ([]model.InvoiceItem, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, invalid("items", "at least one item is required")
	}

	ids := make([]*uuid.UUID, len(reqs))
	var lookup []uuid.UUID
	for i, r := range reqs {
		id, err := parseOptionalID(fmt.Sprintf("items[%d].product_id", i), r.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		ids[i] = id
		if id != nil {
			lookup = append(lookup, *id)
		}
	}
	products, err := productIndex(tx, s.products, tenantID, lookup)
	if err != nil {
		return nil, decimal.Zero, err
	}

	captured := make(map[uuid.UUID]model.InvoiceItem, len(stored))
	for _, it := range stored {
		if it.ProductID == nil {
			continue
		}
		if _, seen := captured[*it.ProductID]; !seen {
			captured[*it.ProductID] = it
		}
	}

	items := make([]model.InvoiceItem, 0, len(reqs))
	total := decimal.Zero
	for i, r := range reqs {
		field := fmt.Sprintf("items[%d]", i)
		if r.Quantity <= 0 {
			return nil, decimal.Zero, invalid(field+".quantity", "must be greater than zero")
		}
		item := model.InvoiceItem{
			ProductID:   ids[i],
			ProductName: strings.TrimSpace(r.ProductName),
			Quantity:    r.Quantity,
		}
		if ids[i] != nil {
			p, ok := products[*ids[i]]
			if !ok {
				return nil, decimal.Zero, &NotFoundError{Entity: "product", ID: *ids[i]}
			}
			if prev, ok := captured[*ids[i]]; ok {
				p.Name, p.SalePrice, p.PurchasePrice = prev.ProductName, prev.SalePrice, prev.PurchasePrice
			}
			if item.ProductName == "" {
				item.ProductName = p.Name
			}
			item.SalePrice = p.SalePrice
			item.PurchasePrice = p.PurchasePrice
		} else {
			if item.ProductName == "" {
				return nil, decimal.Zero, invalid(field+".product_name", "required when product_id is empty")
			}
			if r.SalePrice == nil {
				return nil, decimal.Zero, invalid(field+".sale_price", "required when product_id is empty")
			}
		}
		if r.SalePrice != nil {
			item.SalePrice = money(*r.SalePrice)
		}
		if r.PurchasePrice != nil {
			item.PurchasePrice = money(*r.PurchasePrice)
		}
		if item.SalePrice.IsNegative() {
			return nil, decimal.Zero, invalid(field+".sale_price", "must not be negative")
		}
		if item.PurchasePrice.IsNegative() {
			return nil, decimal.Zero, invalid(field+".purchase_price", "must not be negative")
		}

		total = total.Add(item.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, item)
	}
	return items, money(total), nil
}

// productIndex loads the given products inside tx keyed by id.
func productIndex(tx *gorm.DB, repo repository.ProductRepository, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := repo.FindByIDsTx(tx, tenantID, ids, false)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func invoiceStockLines(items []model.InvoiceItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return lines
}

func invoiceToResponse(inv *model.Invoice, comp *Compensation) *dto.InvoiceResponse {
	items := make([]dto.InvoiceItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, dto.InvoiceItemResponse{
			ProductID:     optionalID(it.ProductID),
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			SalePrice:     it.SalePrice,
			PurchasePrice: it.PurchasePrice,
			Subtotal:      it.SalePrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	resp := &dto.InvoiceResponse{
		ID:              inv.ID.String(),
		Number:          inv.Number,
		Date:            inv.Date.UTC().Format(timeLayout),
		Status:          inv.Status,
		PaymentType:     inv.PaymentType,
		Total:           inv.Total,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		CustomerID:      optionalID(inv.CustomerID),
		Notes:           inv.Notes,
		CancelledAt:     formatOptionalTime(inv.CancelledAt),
		Items:           items,
	}
	if comp != nil {
		resp.Compensation = comp.Report()
	}
	return resp
}
