package service

import (
	"context"

	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceService applies the counterparty side of document lifecycles and
// payment postings.
type BalanceService interface {
	// AdjustTx runs balance = balance + delta on the counterparty. A missing
	// counterparty is recorded in comp and reported with found=false.
	AdjustTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, delta decimal.Decimal, comp *Compensation) (after decimal.Decimal, found bool, err error)

	// RequireTx returns a NotFoundError unless the counterparty exists.
	RequireTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) error

	Balance(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (decimal.Decimal, error)
}

type balanceService struct {
	repo repository.CounterpartyRepository
}

func NewBalanceService(repo repository.CounterpartyRepository) BalanceService {
	return &balanceService{repo: repo}
}

// DocumentDelta is the balance effect of a document: the remaining amount
// for credit documents, zero otherwise.
func DocumentDelta(paymentType string, remaining decimal.Decimal) decimal.Decimal {
	if paymentType == model.PaymentCredit && remaining.IsPositive() {
		return remaining
	}
	return decimal.Zero
}

func (s *balanceService) AdjustTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID, delta decimal.Decimal, comp *Compensation) (decimal.Decimal, bool, error) {
	after, found, err := s.repo.AdjustBalanceTx(tx, tenantID, kind, id, delta)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !found {
		comp.skipBalance(string(kind), id, delta)
	}
	return after, found, nil
}

func (s *balanceService) RequireTx(tx *gorm.DB, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) error {
	ok, err := s.repo.ExistsTx(tx, tenantID, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Entity: string(kind), ID: id}
	}
	return nil
}

func (s *balanceService) Balance(ctx context.Context, tenantID uuid.UUID, kind model.CounterpartyKind, id uuid.UUID) (decimal.Decimal, error) {
	if kind == model.KindSupplier {
		sup, err := s.repo.FindSupplier(ctx, tenantID, id)
		if err != nil {
			return decimal.Zero, lookupError(err, string(kind), id, "find supplier")
		}
		return sup.Balance, nil
	}
	c, err := s.repo.FindCustomer(ctx, tenantID, id)
	if err != nil {
		return decimal.Zero, lookupError(err, string(kind), id, "find customer")
	}
	return c.Balance, nil
}
