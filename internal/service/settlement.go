package service

import (
	"ledgerpos/internal/model"

	"github.com/shopspring/decimal"
)

// settlement is the paid/remaining split of a document total.
type settlement struct {
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// settle derives paid and remaining amounts for a document. Cash documents
// are always fully paid. For credit documents an omitted side is derived
// from the other; when both are omitted fallbackPaid is used.
func settle(paymentType string, total decimal.Decimal, paid, remaining *decimal.Decimal, fallbackPaid decimal.Decimal) (settlement, error) {
	switch paymentType {
	case model.PaymentCash:
		return settlement{Paid: total, Remaining: decimal.Zero}, nil
	case model.PaymentCredit:
	default:
		return settlement{}, invalid("payment_type", "must be cash or credit")
	}

	var st settlement
	switch {
	case paid != nil && remaining != nil:
		st = settlement{Paid: money(*paid), Remaining: money(*remaining)}
		if !st.Paid.Add(st.Remaining).Equal(total) {
			return settlement{}, invalid("remaining_amount", "paid_amount plus remaining_amount must equal the total")
		}
	case remaining != nil:
		st = settlement{Paid: total.Sub(money(*remaining)), Remaining: money(*remaining)}
	case paid != nil:
		st = settlement{Paid: money(*paid), Remaining: total.Sub(money(*paid))}
	default:
		st = settlement{Paid: fallbackPaid, Remaining: total.Sub(fallbackPaid)}
	}

	if st.Remaining.IsNegative() {
		return settlement{}, invalid("paid_amount", "cannot exceed the total")
	}
	if st.Paid.IsNegative() {
		return settlement{}, invalid("remaining_amount", "cannot exceed the total")
	}
	return st, nil
}
