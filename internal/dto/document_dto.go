package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// DocumentFilter is bound from the query string of GET /v1/invoices and
// GET /v1/supplies.
type DocumentFilter struct {
	Status string `form:"status,default=active"` // active | cancelled | all
	From   string `form:"from"`                  // YYYY-MM-DD, inclusive
	To     string `form:"to"`                    // YYYY-MM-DD, inclusive
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Compensation report ────────────────────────────────────────────────────

// SkippedAdjustment describes one stock or balance adjustment the engine could
// not apply because the referenced row no longer exists.
type SkippedAdjustment struct {
	Kind     string          `json:"kind"` // stock | balance
	EntityID string          `json:"entity_id"`
	Quantity int             `json:"quantity,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
}

// CompensationReport is attached to every mutating response. Partial is true
// when at least one adjustment was skipped.
type CompensationReport struct {
	Partial bool                `json:"partial"`
	Skipped []SkippedAdjustment `json:"skipped"`
}

// DeleteDocumentResponse is returned by DELETE /v1/invoices/:id and
// DELETE /v1/supplies/:id.
type DeleteDocumentResponse struct {
	ID           string              `json:"id"`
	Number       string              `json:"number"`
	Compensated  bool                `json:"compensated"`
	Compensation *CompensationReport `json:"compensation"`
}
