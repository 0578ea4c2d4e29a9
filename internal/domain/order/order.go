package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// PaymentMethod enumerates the supported payment channels.
type PaymentMethod string

const (
	// PaymentOnline charges the customer through the hosted payment gateway.
	PaymentOnline PaymentMethod = "online"
	// PaymentWhatsApp hands the order off to a chat conversation; settlement
	// happens out of band.
	PaymentWhatsApp PaymentMethod = "whatsapp"
	// PaymentCash is the staff-entered manual variant.
	PaymentCash PaymentMethod = "cash"
)

// PaymentStatus is the payment lifecycle state of an order. It only ever
// moves forward: unpaid/processing -> paid.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentProcessing, PaymentPaid:
		return true
	}
	return false
}

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known fulfillment status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Item is a single priced line of an order. TotalPrice is always
// Price * Quantity; it is computed server-side, never taken from the client.
type Item struct {
	FoodID     string          `json:"foodId"`
	FoodName   string          `json:"foodName"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	FoodImage  string          `json:"foodImage,omitempty"`
}

// Order is a persisted customer order. Reference is the opaque public
// identifier used for unauthenticated tracking lookups.
type Order struct {
	ID               string
	Reference        string
	Items            []Item
	Subtotal         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Total            decimal.Decimal
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Status           Status
	ContactPhone     string
	DeliveryLocation Location
	FullAddress      string
	CustomerName     string
	CustomerEmail    string
	PaymentTxRef     string
	CreatedAt        time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByReference(ctx context.Context, reference string) (*Order, error)
	// UpdatePaymentStatus transitions the payment status. Implementations
	// must guard the transition so a paid order never regresses; moving an
	// already-paid order is a no-op, not an error.
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, txID string) error
	UpdateStatus(ctx context.Context, id string, status Status) error
}
