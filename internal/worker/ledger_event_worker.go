package worker

// ledger_event_worker.go
// Consumes ledger events published after every committed document, payment
// or receipt and drops the tenant's cached statistics.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
)

// Ledger event types.
const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceUpdated   = "invoice.updated"
	EventInvoiceCancelled = "invoice.cancelled"
	EventInvoiceDeleted   = "invoice.deleted"
	EventSupplyCreated    = "supply.created"
	EventSupplyUpdated    = "supply.updated"
	EventSupplyCancelled  = "supply.cancelled"
	EventSupplyDeleted    = "supply.deleted"
	EventPaymentPosted    = "payment.posted"
	EventReceiptPosted    = "receipt.posted"
)

// LedgerEvent is the payload of a JobLedgerEvent job.
type LedgerEvent struct {
	Type       string `json:"type"`
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	Number     string `json:"number,omitempty"`
	Partial    bool   `json:"partial"`
	OccurredAt string `json:"occurred_at"` // ISO 8601
}

// CacheInvalidator retires every cached statistics entry of a tenant and
// returns the tenant's new cache generation.
type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) (int64, error)
}

// LedgerEventWorker invalidates cached statistics on ledger events.
type LedgerEventWorker struct {
	cache CacheInvalidator
}

func NewLedgerEventWorker(cache CacheInvalidator) *LedgerEventWorker {
	return &LedgerEventWorker{cache: cache}
}

// Process handles a single ledger event job.
func (w *LedgerEventWorker) Process(ctx context.Context, job Job) error {
	var ev LedgerEvent
	if err := json.Unmarshal(job.Payload, &ev); err != nil {
		log.Error().Err(err).Msg("ledger_event_worker: invalid payload")
		return err
	}
	if ev.TenantID == "" {
		return errors.New("ledger event without tenant_id")
	}

	gen, err := w.cache.InvalidateTenant(ctx, ev.TenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", ev.TenantID).Str("event", ev.Type).
			Msg("ledger_event_worker: cache invalidation failed")
		return err
	}

	evt := log.Info()
	if ev.Partial {
		evt = log.Warn()
	}
	evt.Str("tenant_id", ev.TenantID).
		Str("event", ev.Type).
		Str("document_id", ev.DocumentID).
		Str("number", ev.Number).
		Bool("partial", ev.Partial).
		Int64("stats_generation", gen).
		Msg("ledger_event_worker: processed")
	return nil
}

// Handlers returns the job-type routing table for StartWorkerPool.
func (w *LedgerEventWorker) Handlers() map[string]Handler {
	return map[string]Handler{JobLedgerEvent: w.Process}
}
