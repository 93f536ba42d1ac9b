package service

import (
	"ledgerpos/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Compensation collects the adjustments an operation had to skip because the
// referenced product or counterparty no longer exists.
type Compensation struct {
	tenantID uuid.UUID
	document string
	skipped  []dto.SkippedAdjustment
}

func newCompensation(tenantID uuid.UUID, document string) *Compensation {
	return &Compensation{tenantID: tenantID, document: document}
}

func (c *Compensation) skipStock(productID uuid.UUID, name string, qty int) {
	if c == nil {
		return
	}
	c.skipped = append(c.skipped, dto.SkippedAdjustment{
		Kind:     "stock",
		EntityID: productID.String(),
		Quantity: qty,
		Amount:   decimal.Zero,
		Reason:   "product " + name + " no longer exists",
	})
	log.Warn().
		Str("tenant_id", c.tenantID.String()).
		Str("document", c.document).
		Str("product_id", productID.String()).
		Int("quantity", qty).
		Msg("stock adjustment skipped: product not found")
}

func (c *Compensation) skipBalance(kind string, id uuid.UUID, delta decimal.Decimal) {
	if c == nil {
		return
	}
	c.skipped = append(c.skipped, dto.SkippedAdjustment{
		Kind:     "balance",
		EntityID: id.String(),
		Amount:   delta,
		Reason:   kind + " no longer exists",
	})
	log.Warn().
		Str("tenant_id", c.tenantID.String()).
		Str("document", c.document).
		Str(kind+"_id", id.String()).
		Str("delta", delta.String()).
		Msg("balance adjustment skipped: counterparty not found")
}

// Partial reports whether any adjustment was skipped.
func (c *Compensation) Partial() bool { return c != nil && len(c.skipped) > 0 }

// Report converts the collected skips into the response shape.
func (c *Compensation) Report() *dto.CompensationReport {
	r := &dto.CompensationReport{Skipped: []dto.SkippedAdjustment{}}
	if c == nil {
		return r
	}
	r.Partial = len(c.skipped) > 0
	r.Skipped = append(r.Skipped, c.skipped...)
	return r
}
