package service

import (
	"context"
	"time"

	"ledgerpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventPublisher receives a notification after every committed ledger change.
// *worker.Dispatcher satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev worker.LedgerEvent) error
}

// publishLedgerEvent is best-effort: the ledger change is already committed,
// so a queue failure is only logged.
func publishLedgerEvent(ctx context.Context, pub EventPublisher, tenantID uuid.UUID, eventType string, docID uuid.UUID, number string, partial bool) {
	if pub == nil {
		return
	}
	ev := worker.LedgerEvent{
		Type:       eventType,
		TenantID:   tenantID.String(),
		DocumentID: docID.String(),
		Number:     number,
		Partial:    partial,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := pub.PublishLedgerEvent(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("tenant_id", ev.TenantID).
			Str("event", eventType).
			Msg("failed to publish ledger event")
	}
}
