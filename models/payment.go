package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TerminalPaymentStatus string

const (
	TerminalCreated    TerminalPaymentStatus = "CREATED"
	TerminalProcessing TerminalPaymentStatus = "PROCESSING"
	TerminalSucceeded  TerminalPaymentStatus = "SUCCEEDED"
	TerminalFailed     TerminalPaymentStatus = "FAILED"
	TerminalCanceled   TerminalPaymentStatus = "CANCELED"
	TerminalTimeout    TerminalPaymentStatus = "TIMEOUT"
)

// Terminal reports whether the status is final, i.e. polling may stop.
func (s TerminalPaymentStatus) Terminal() bool {
	switch s {
	case TerminalSucceeded, TerminalFailed, TerminalCanceled, TerminalTimeout:
		return true
	}
	return false
}

// TerminalPayment is one attempt to collect an order total on a physical
// card terminal. Attempt counts across retries of the same order are
// tracked in the database, not here.
type TerminalPayment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	InvoiceID string
	IntentID  string
	Status    TerminalPaymentStatus
	Attempt   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
