package service

import (
	"context"
	"sort"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockDirection selects whether a line consumes or returns stock.
type StockDirection int

const (
	Deduct StockDirection = iota
	Restore
)

// StockLine is the stock-relevant part of a document line.
type StockLine struct {
	ProductID   *uuid.UUID
	ProductName string
	Quantity    int
}

// StockRef ties the stock movements of one adjustment to its document.
type StockRef struct {
	DocumentID uuid.UUID
	Number     string
	Kind       string // model.Movement*
}

// InventoryService applies the stock side of document lifecycles.
type InventoryService interface {
	// ApplyTx adjusts stock for every line that references a product and logs
	// a StockMovement per line. Products that no longer exist are skipped and
	// recorded in comp; any other error aborts the transaction.
	ApplyTx(tx *gorm.DB, tenantID uuid.UUID, lines []StockLine, dir StockDirection, ref StockRef, comp *Compensation) error

	// CheckAvailabilityTx locks the products involved and returns a
	// ConflictError when restoring incoming and then deducting outgoing would
	// leave any product below zero. It writes nothing.
	CheckAvailabilityTx(tx *gorm.DB, tenantID uuid.UUID, incoming, outgoing []StockLine) error

	ListMovements(ctx context.Context, tenantID, productID uuid.UUID, kind string, page, limit int) (*dto.StockMovementListResponse, error)
}

type inventoryService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewInventoryService(products repository.ProductRepository, movements repository.StockMovementRepository) InventoryService {
	return &inventoryService{products: products, movements: movements}
}

func (s *inventoryService) ApplyTx(tx *gorm.DB, tenantID uuid.UUID, lines []StockLine, dir StockDirection, ref StockRef, comp *Compensation) error {
	// One UPDATE per product, taken in id order, so concurrent documents
	// naming the same products in a different order lock them in the same
	// sequence.
	byProduct := make(map[uuid.UUID][]StockLine)
	var ids []uuid.UUID
	for _, l := range lines {
		if l.ProductID == nil || l.Quantity == 0 {
			continue
		}
		if _, seen := byProduct[*l.ProductID]; !seen {
			ids = append(ids, *l.ProductID)
		}
		byProduct[*l.ProductID] = append(byProduct[*l.ProductID], l)
	}
	sortIDs(ids)

	sign := -1
	if dir == Restore {
		sign = 1
	}
	for _, id := range ids {
		group := byProduct[id]
		total := 0
		for _, l := range group {
			total += sign * l.Quantity
		}

		after, found, err := s.products.AdjustStockTx(tx, tenantID, id, total)
		if err != nil {
			return err
		}
		if !found {
			for _, l := range group {
				comp.skipStock(id, l.ProductName, sign*l.Quantity)
			}
			continue
		}

		// Movements stay per line; replay them from the stock level before
		// the combined adjustment.
		level := after - total
		docID := ref.DocumentID
		for _, l := range group {
			delta := sign * l.Quantity
			mov := &model.StockMovement{
				TenantID:      tenantID,
				ProductID:     id,
				Kind:          ref.Kind,
				Quantity:      delta,
				StockBefore:   level,
				StockAfter:    level + delta,
				ReferenceID:   &docID,
				ReferenceCode: ref.Number,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return err
			}
			level += delta
		}
	}
	return nil
}

func (s *inventoryService) CheckAvailabilityTx(tx *gorm.DB, tenantID uuid.UUID, incoming, outgoing []StockLine) error {
	net := make(map[uuid.UUID]int)
	required := make(map[uuid.UUID]int)
	var ids []uuid.UUID
	track := func(id uuid.UUID) {
		if _, seen := net[id]; !seen {
			ids = append(ids, id)
		}
	}
	for _, l := range incoming {
		if l.ProductID != nil {
			track(*l.ProductID)
			net[*l.ProductID] += l.Quantity
		}
	}
	for _, l := range outgoing {
		if l.ProductID == nil {
			continue
		}
		track(*l.ProductID)
		net[*l.ProductID] -= l.Quantity
		required[*l.ProductID] += l.Quantity
	}
	if len(required) == 0 {
		return nil
	}

	// Every product the operation will touch is locked here, in id order.
	products, err := s.products.FindByIDsTx(tx, tenantID, ids, true)
	if err != nil {
		return err
	}

	var shortages []StockShortage
	for _, p := range products {
		n := net[p.ID]
		if n < 0 && p.Stock+n < 0 {
			shortages = append(shortages, StockShortage{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock + net[p.ID] + required[p.ID],
				Required:  required[p.ID],
			})
		}
	}
	if len(shortages) == 0 {
		return nil
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].Name < shortages[j].Name })
	return &ConflictError{Reason: "insufficient stock", Shortages: shortages}
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

func (s *inventoryService) ListMovements(ctx context.Context, tenantID, productID uuid.UUID, kind string, page, limit int) (*dto.StockMovementListResponse, error) {
	page, limit = normalizePage(page, limit)
	if _, err := s.products.FindByID(ctx, tenantID, productID); err != nil {
		return nil, lookupError(err, "product", productID, "find product")
	}
	movements, total, err := s.movements.List(ctx, tenantID, repository.StockMovementFilter{
		ProductID: productID,
		Kind:      kind,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, classifyStoreError("list stock movements", err)
	}
	resp := &dto.StockMovementListResponse{
		Data:  make([]dto.StockMovementResponse, 0, len(movements)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, m := range movements {
		resp.Data = append(resp.Data, dto.StockMovementResponse{
			ID:            m.ID.String(),
			ProductID:     m.ProductID.String(),
			Kind:          m.Kind,
			Quantity:      m.Quantity,
			StockBefore:   m.StockBefore,
			StockAfter:    m.StockAfter,
			ReferenceID:   optionalID(m.ReferenceID),
			ReferenceCode: m.ReferenceCode,
			CreatedAt:     m.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return resp, nil
}
