package model

// Document status. Cancelled is terminal.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Payment types. Only credit documents touch a counterparty balance.
const (
	PaymentCash   = "cash"
	PaymentCredit = "credit"
)
