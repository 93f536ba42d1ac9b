package service

import (
	"context"
	"fmt"
	"time"

	"ledgerpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SequenceKind is a class of numbered document.
type SequenceKind string

const (
	SequenceInvoice SequenceKind = "invoice"
	SequenceSupply  SequenceKind = "supply"
	SequenceReceipt SequenceKind = "receipt"
)

// Prefixes configures the human-readable prefix of each numbered document.
type Prefixes struct {
	Invoice string
	Supply  string
	Receipt string
}

func DefaultPrefixes() Prefixes {
	return Prefixes{Invoice: "INV", Supply: "SUP", Receipt: "REC"}
}

// FormatNumber renders n as PREFIX-000n with width digits.
func FormatNumber(prefix string, width int, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}

type SequenceService interface {
	// Next issues the next number of kind for the tenant. When tx is non-nil
	// the counter advances inside the caller's transaction and is rolled back
	// with it; otherwise Next runs in its own transaction.
	Next(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, kind SequenceKind) (string, error)
}

type sequenceService struct {
	repo     repository.ProfileRepository
	prefixes Prefixes
	timeout  time.Duration
}

// NewSequenceService falls back to DefaultPrefixes for any empty prefix.
func NewSequenceService(repo repository.ProfileRepository, prefixes Prefixes, timeout time.Duration) SequenceService {
	def := DefaultPrefixes()
	if prefixes.Invoice == "" {
		prefixes.Invoice = def.Invoice
	}
	if prefixes.Supply == "" {
		prefixes.Supply = def.Supply
	}
	if prefixes.Receipt == "" {
		prefixes.Receipt = def.Receipt
	}
	return &sequenceService{repo: repo, prefixes: prefixes, timeout: timeout}
}

func (s *sequenceService) Next(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, kind SequenceKind) (string, error) {
	var column, prefix string
	var width int
	switch kind {
	case SequenceInvoice:
		column, prefix, width = repository.CounterInvoice, s.prefixes.Invoice, 5
	case SequenceSupply:
		column, prefix, width = repository.CounterSupply, s.prefixes.Supply, 5
	case SequenceReceipt:
		column, prefix, width = repository.CounterReceipt, s.prefixes.Receipt, 4
	default:
		return "", invalid("kind", fmt.Sprintf("unknown sequence kind %q", kind))
	}

	if tx != nil {
		n, err := s.repo.NextCounterTx(tx, tenantID, column)
		if err != nil {
			return "", err
		}
		return FormatNumber(prefix, width, n), nil
	}

	var number string
	err := runTx(ctx, s.repo.DB(), s.timeout, "next sequence", func(tx *gorm.DB) error {
		n, err := s.repo.NextCounterTx(tx, tenantID, column)
		if err != nil {
			return err
		}
		number = FormatNumber(prefix, width, n)
		return nil
	})
	return number, err
}
