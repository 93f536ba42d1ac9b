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

// SupplyService is the lifecycle controller of purchase documents. It mirrors
// InvoiceService with the stock direction inverted: a supply brings stock in
// and its credit remainder is owed to the supplier.
type SupplyService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateSupplyRequest) (*dto.SupplyResponse, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateSupplyRequest) (*dto.SupplyResponse, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*dto.SupplyResponse, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (*dto.DeleteDocumentResponse, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*dto.SupplyResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) (*dto.SupplyListResponse, error)
}

type supplyService struct {
	repo      repository.SupplyRepository
	products  repository.ProductRepository
	sequence  SequenceService
	inventory InventoryService
	balances  BalanceService
	events    EventPublisher
	timeout   time.Duration
}

func NewSupplyService(
	repo repository.SupplyRepository,
	products repository.ProductRepository,
	sequence SequenceService,
	inventory InventoryService,
	balances BalanceService,
	events EventPublisher,
	timeout time.Duration,
) SupplyService {
	return &supplyService{
		repo:      repo,
		products:  products,
		sequence:  sequence,
		inventory: inventory,
		balances:  balances,
		events:    events,
		timeout:   timeout,
	}
}

func (s *supplyService) Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateSupplyRequest) (*dto.SupplyResponse, error) {
	if req.PaymentType != model.PaymentCash && req.PaymentType != model.PaymentCredit {
		return nil, invalid("payment_type", "must be cash or credit")
	}
	supplierID, err := parseOptionalID("supplier_id", req.SupplierID)
	if err != nil {
		return nil, err
	}

	var sup model.Supply
	var comp *Compensation
	err = runTx(ctx, s.repo.DB(), s.timeout, "create supply", func(tx *gorm.DB) error {
		items, total, err := s.resolveItems(tx, tenantID, req.Items, nil)
		if err != nil {
			return err
		}
		st, err := settle(req.PaymentType, total, req.PaidAmount, req.RemainingAmount, decimal.Zero)
		if err != nil {
			return err
		}
		if err := s.checkSupplierTx(tx, tenantID, supplierID, req.PaymentType, st); err != nil {
			return err
		}

		number, err := s.sequence.Next(ctx, tx, tenantID, SequenceSupply)
		if err != nil {
			return err
		}

		sup = model.Supply{
			TenantID:        tenantID,
			Number:          number,
			Date:            documentDate(req.Date),
			Status:          model.StatusActive,
			PaymentType:     req.PaymentType,
			Total:           total,
			PaidAmount:      st.Paid,
			RemainingAmount: st.Remaining,
			SupplierID:      supplierID,
			Notes:           req.Notes,
			Items:           items,
		}
		if err := s.repo.CreateTx(tx, &sup); err != nil {
			return err
		}

		comp = newCompensation(tenantID, number)
		return s.applyEffectsTx(tx, &sup, comp)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("number", sup.Number).
		Str("total", sup.Total.String()).
		Msg("supply created")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventSupplyCreated, sup.ID, sup.Number, comp.Partial())
	return supplyToResponse(&sup, comp), nil
}

// Update reverses the old lines (taking their stock back out) and receives
// the new ones. The availability check runs first with the old lines as the
// outgoing side, so an update cannot pull out stock that was already sold.
func (s *supplyService) Update(ctx context.Context, tenantID, id uuid.UUID, req dto.UpdateSupplyRequest) (*dto.SupplyResponse, error) {
	if req.PaymentType != nil && *req.PaymentType != model.PaymentCash && *req.PaymentType != model.PaymentCredit {
		return nil, invalid("payment_type", "must be cash or credit")
	}
	newSupplierID, err := parseOptionalID("supplier_id", req.SupplierID)
	if err != nil {
		return nil, err
	}

	var sup *model.Supply
	var comp *Compensation
	err = runTx(ctx, s.repo.DB(), s.timeout, "update supply", func(tx *gorm.DB) error {
		var err error
		sup, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "supply", id, "find supply")
		}
		if sup.Status != model.StatusActive {
			return &ConflictError{Reason: fmt.Sprintf("supply %s is cancelled and cannot be updated", sup.Number)}
		}

		// Without new lines the stored ones stay and stock is not touched.
		linesChanged := req.Items != nil
		items, total := sup.Items, sup.Total
		if linesChanged {
			items, total, err = s.resolveItems(tx, tenantID, req.Items, sup.Items)
			if err != nil {
				return err
			}
		}

		paymentType := sup.PaymentType
		if req.PaymentType != nil {
			paymentType = *req.PaymentType
		}
		supplierID := sup.SupplierID
		if req.SupplierID != nil {
			supplierID = newSupplierID
		}
		fallbackPaid := sup.PaidAmount
		if paymentType != sup.PaymentType {
			fallbackPaid = decimal.Zero
		}
		st, err := settle(paymentType, total, req.PaidAmount, req.RemainingAmount, fallbackPaid)
		if err != nil {
			return err
		}
		if err := s.checkSupplierTx(tx, tenantID, supplierID, paymentType, st); err != nil {
			return err
		}

		comp = newCompensation(tenantID, sup.Number)
		if linesChanged {
			if err := s.inventory.CheckAvailabilityTx(tx, tenantID, supplyStockLines(items), supplyStockLines(sup.Items)); err != nil {
				return err
			}
			if err := s.reverseStockTx(tx, sup, comp); err != nil {
				return err
			}
		}
		if err := s.reverseBalanceTx(tx, sup, comp); err != nil {
			return err
		}

		if req.Date != nil {
			sup.Date = documentDate(req.Date)
		}
		if req.Notes != nil {
			sup.Notes = req.Notes
		}
		sup.PaymentType = paymentType
		sup.SupplierID = supplierID
		sup.Total = total
		sup.PaidAmount = st.Paid
		sup.RemainingAmount = st.Remaining
		if err := s.repo.UpdateTx(tx, sup); err != nil {
			return err
		}
		if !linesChanged {
			return s.applyBalanceTx(tx, sup, comp)
		}
		if err := s.repo.ReplaceItemsTx(tx, sup, items); err != nil {
			return err
		}
		return s.applyEffectsTx(tx, sup, comp)
	})
	if err != nil {
		return nil, err
	}

	publishLedgerEvent(ctx, s.events, tenantID, worker.EventSupplyUpdated, sup.ID, sup.Number, comp.Partial())
	return supplyToResponse(sup, comp), nil
}

func (s *supplyService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*dto.SupplyResponse, error) {
	var sup *model.Supply
	var comp *Compensation
	err := runTx(ctx, s.repo.DB(), s.timeout, "cancel supply", func(tx *gorm.DB) error {
		var err error
		sup, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "supply", id, "find supply")
		}
		if sup.Status == model.StatusCancelled {
			return &ConflictError{Reason: fmt.Sprintf("supply %s is already cancelled", sup.Number)}
		}

		comp = newCompensation(tenantID, sup.Number)
		if err := s.reverseEffectsTx(tx, sup, comp); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.repo.MarkCancelledTx(tx, tenantID, id, now); err != nil {
			return err
		}
		sup.Status = model.StatusCancelled
		sup.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tenant_id", tenantID.String()).Str("number", sup.Number).Msg("supply cancelled")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventSupplyCancelled, sup.ID, sup.Number, comp.Partial())
	return supplyToResponse(sup, comp), nil
}

func (s *supplyService) Delete(ctx context.Context, tenantID, id uuid.UUID) (*dto.DeleteDocumentResponse, error) {
	var sup *model.Supply
	var comp *Compensation
	compensated := false
	err := runTx(ctx, s.repo.DB(), s.timeout, "delete supply", func(tx *gorm.DB) error {
		var err error
		sup, err = s.repo.FindByIDTx(tx, tenantID, id, true)
		if err != nil {
			return lookupError(err, "supply", id, "find supply")
		}

		comp = newCompensation(tenantID, sup.Number)
		if sup.Status == model.StatusActive {
			if err := s.reverseEffectsTx(tx, sup, comp); err != nil {
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
		Str("number", sup.Number).
		Bool("compensated", compensated).
		Msg("supply deleted")
	publishLedgerEvent(ctx, s.events, tenantID, worker.EventSupplyDeleted, sup.ID, sup.Number, comp.Partial())
	return &dto.DeleteDocumentResponse{
		ID:           sup.ID.String(),
		Number:       sup.Number,
		Compensated:  compensated,
		Compensation: comp.Report(),
	}, nil
}

func (s *supplyService) Get(ctx context.Context, tenantID, id uuid.UUID) (*dto.SupplyResponse, error) {
	sup, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupError(err, "supply", id, "find supply")
	}
	return supplyToResponse(sup, nil), nil
}

func (s *supplyService) List(ctx context.Context, tenantID uuid.UUID, filter dto.DocumentFilter) (*dto.SupplyListResponse, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	supplies, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, classifyStoreError("list supplies", err)
	}
	resp := &dto.SupplyListResponse{
		Data:  make([]dto.SupplyResponse, 0, len(supplies)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range supplies {
		resp.Data = append(resp.Data, *supplyToResponse(&supplies[i], nil))
	}
	return resp, nil
}

// applyEffectsTx receives stock, records the latest purchase price on each
// product and adds the credit remainder to the supplier.
func (s *supplyService) applyEffectsTx(tx *gorm.DB, sup *model.Supply, comp *Compensation) error {
	ref := StockRef{DocumentID: sup.ID, Number: sup.Number, Kind: model.MovementPurchase}
	if err := s.inventory.ApplyTx(tx, sup.TenantID, supplyStockLines(sup.Items), Restore, ref, comp); err != nil {
		return err
	}
	for _, it := range sup.Items {
		if it.ProductID == nil {
			continue
		}
		if err := s.products.UpdatePurchasePriceTx(tx, sup.TenantID, *it.ProductID, it.PurchasePrice); err != nil {
			return err
		}
	}
	return s.applyBalanceTx(tx, sup, comp)
}

// reverseEffectsTx takes the received stock back out and removes the credit
// remainder from the supplier. Purchase prices are left as they are.
func (s *supplyService) reverseEffectsTx(tx *gorm.DB, sup *model.Supply, comp *Compensation) error {
	if err := s.reverseStockTx(tx, sup, comp); err != nil {
		return err
	}
	return s.reverseBalanceTx(tx, sup, comp)
}

func (s *supplyService) reverseStockTx(tx *gorm.DB, sup *model.Supply, comp *Compensation) error {
	ref := StockRef{DocumentID: sup.ID, Number: sup.Number, Kind: model.MovementPurchaseRestore}
	return s.inventory.ApplyTx(tx, sup.TenantID, supplyStockLines(sup.Items), Deduct, ref, comp)
}

func (s *supplyService) applyBalanceTx(tx *gorm.DB, sup *model.Supply, comp *Compensation) error {
	return s.adjustSupplierTx(tx, sup, DocumentDelta(sup.PaymentType, sup.RemainingAmount), comp)
}

func (s *supplyService) reverseBalanceTx(tx *gorm.DB, sup *model.Supply, comp *Compensation) error {
	return s.adjustSupplierTx(tx, sup, DocumentDelta(sup.PaymentType, sup.RemainingAmount).Neg(), comp)
}

func (s *supplyService) adjustSupplierTx(tx *gorm.DB, sup *model.Supply, delta decimal.Decimal, comp *Compensation) error {
	if sup.SupplierID == nil || delta.IsZero() {
		return nil
	}
	_, _, err := s.balances.AdjustTx(tx, sup.TenantID, model.KindSupplier, *sup.SupplierID, delta, comp)
	return err
}

func (s *supplyService) checkSupplierTx(tx *gorm.DB, tenantID uuid.UUID, supplierID *uuid.UUID, paymentType string, st settlement) error {
	if supplierID == nil {
		if paymentType == model.PaymentCredit && st.Remaining.IsPositive() {
			return invalid("supplier_id", "required for credit supplies with a remaining amount")
		}
		return nil
	}
	return s.balances.RequireTx(tx, tenantID, model.KindSupplier, *supplierID)
}

// resolveItems mirrors the invoice variant: omitted prices come from the
// stored line of the same product, otherwise from the product row.
func (s *supplyService) resolveItems(tx *gorm.DB, tenantID uuid.UUID, reqs []dto.SupplyItemRequest, stored []model.SupplyItem) ([]model.SupplyItem, decimal.Decimal, error) {
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

	captured := make(map[uuid.UUID]model.SupplyItem, len(stored))
	for _, it := range stored {
		if it.ProductID == nil {
			continue
		}
		if _, seen := captured[*it.ProductID]; !seen {
			captured[*it.ProductID] = it
		}
	}

	items := make([]model.SupplyItem, 0, len(reqs))
	total := decimal.Zero
	for i, r := range reqs {
		field := fmt.Sprintf("items[%d]", i)
		if r.Quantity <= 0 {
			return nil, decimal.Zero, invalid(field+".quantity", "must be greater than zero")
		}
		item := model.SupplyItem{
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
				p.Name, p.PurchasePrice = prev.ProductName, prev.PurchasePrice
			}
			if item.ProductName == "" {
				item.ProductName = p.Name
			}
			item.PurchasePrice = p.PurchasePrice
		} else {
			if item.ProductName == "" {
				return nil, decimal.Zero, invalid(field+".product_name", "required when product_id is empty")
			}
			if r.PurchasePrice == nil {
				return nil, decimal.Zero, invalid(field+".purchase_price", "required when product_id is empty")
			}
		}
		if r.PurchasePrice != nil {
			item.PurchasePrice = money(*r.PurchasePrice)
		}
		if item.PurchasePrice.IsNegative() {
			return nil, decimal.Zero, invalid(field+".purchase_price", "must not be negative")
		}

		total = total.Add(item.PurchasePrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, item)
	}
	return items, money(total), nil
}

func supplyStockLines(items []model.SupplyItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return lines
}

func supplyToResponse(sup *model.Supply, comp *Compensation) *dto.SupplyResponse {
	items := make([]dto.SupplyItemResponse, 0, len(sup.Items))
	for _, it := range sup.Items {
		items = append(items, dto.SupplyItemResponse{
			ProductID:     optionalID(it.ProductID),
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			PurchasePrice: it.PurchasePrice,
			Subtotal:      it.PurchasePrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	resp := &dto.SupplyResponse{
		ID:              sup.ID.String(),
		Number:          sup.Number,
		Date:            sup.Date.UTC().Format(timeLayout),
		Status:          sup.Status,
		PaymentType:     sup.PaymentType,
		Total:           sup.Total,
		PaidAmount:      sup.PaidAmount,
		RemainingAmount: sup.RemainingAmount,
		SupplierID:      optionalID(sup.SupplierID),
		Notes:           sup.Notes,
		CancelledAt:     formatOptionalTime(sup.CancelledAt),
		Items:           items,
	}
	if comp != nil {
		resp.Compensation = comp.Report()
	}
	return resp
}
