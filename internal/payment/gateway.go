// Package payment integrates with the hosted payment gateway: initiating
// charges, verifying transactions by reference, and authenticating webhook
// deliveries.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when the gateway has no transaction for
// the given reference.
var ErrTransactionNotFound = errors.New("transaction not found")

// ChargeRequest describes a hosted payment to initiate. TxRef is the
// merchant-side reference the gateway echoes back in callbacks and lookups.
type ChargeRequest struct {
	TxRef         string
	Amount        decimal.Decimal
	Currency      string
	RedirectURL   string
	CustomerEmail string
	CustomerPhone string
	CustomerName  string
}

// Charge is an initiated hosted payment.
type Charge struct {
	TxRef       string
	PaymentLink string
}

// Transaction is the gateway's record of a payment attempt.
type Transaction struct {
	ID       int64
	TxRef    string
	Amount   decimal.Decimal
	Currency string
	Status   string
}

// Successful reports whether the transaction outcome counts as a completed
// charge. The gateway reports either form depending on the channel.
func (t *Transaction) Successful() bool {
	return t.Status == "successful" || t.Status == "completed"
}

// Gateway is the payment provider contract used by the checkout service and
// the webhook handler.
type Gateway interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	VerifyTransaction(ctx context.Context, txRef string) (*Transaction, error)
}
