package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savourly/orderflow/internal/domain/food"
	"github.com/savourly/orderflow/internal/payment"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart       = fmt.Errorf("cart is empty")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ValidationError indicates a request field failed validation before any
// network or storage call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FoodNotFoundError indicates a requested food does not exist in the catalog.
type FoodNotFoundError struct {
	FoodID string
}

func (e *FoodNotFoundError) Error() string {
	return fmt.Sprintf("food %s not found", e.FoodID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	FoodID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for food %s", e.FoodID)
}

// ChargeInitError indicates the order was persisted but the payment gateway
// charge could not be initiated. The order stays in processing and the
// customer retries payment against the same reference; the order is not lost.
type ChargeInitError struct {
	OrderID   string
	Reference string
	Err       error
}

func (e *ChargeInitError) Error() string {
	return fmt.Sprintf("order %s created but charge initiation failed: %v", e.Reference, e.Err)
}

func (e *ChargeInitError) Unwrap() error { return e.Err }

// ItemRequest is one requested cart line, pre-pricing.
type ItemRequest struct {
	FoodID   string
	Quantity int
}

// PlaceOrderRequest holds the normalized input for placing an order.
// Single-item legacy requests are converted to a one-element Items slice at
// the transport boundary; the service only ever sees the canonical form.
type PlaceOrderRequest struct {
	Items            []ItemRequest
	PaymentMethod    PaymentMethod
	DeliveryLocation Location
	FullAddress      string
	ContactPhone     string

	// Guest checkout: required when Authenticated is false.
	CustomerName  string
	CustomerEmail string
	Authenticated bool

	// InitialPaymentStatus is honoured only for the staff cash variant,
	// where the operator chooses the starting state.
	InitialPaymentStatus PaymentStatus

	// RedirectURL is where the gateway sends the customer after an online
	// payment attempt.
	RedirectURL string
}

// PlaceOrderResult is the outcome of a successfully placed order.
type PlaceOrderResult struct {
	Order *Order
	// PaymentLink is the hosted gateway checkout URL for online payments.
	PaymentLink string
	// WhatsAppLink is the prefilled chat deep-link for whatsapp payments.
	WhatsAppLink string
}

// ServiceConfig holds non-dependency configuration for the checkout service.
type ServiceConfig struct {
	// Currency is the ISO code passed to the payment gateway.
	Currency string
	// WhatsAppNumber is the restaurant's chat number in international
	// format without the leading plus, e.g. "2349041234567".
	WhatsAppNumber string
}

// Service is the checkout orchestrator: it turns a cart plus delivery choice
// into a persisted order and drives the chosen payment channel.
type Service struct {
	cfg     ServiceConfig
	foods   food.Repository
	orders  Repository
	gateway payment.Gateway
	now     func() time.Time
}

// NewService creates a checkout Service with the required dependencies.
func NewService(cfg ServiceConfig, foods food.Repository, orders Repository, gateway payment.Gateway) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &Service{
		cfg:     cfg,
		foods:   foods,
		orders:  orders,
		gateway: gateway,
		now:     time.Now,
	}
}

// PlaceOrder validates the cart, prices it from the catalog, persists the
// order, and performs the payment-method-specific side effect.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{FoodID: item.FoodID}
		}
		ids[i] = item.FoodID
	}

	// Batch fetch all foods in a single query; prices come from the
	// catalog, never from the request.
	fetched, err := s.foods.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get foods: %w", err)
	}
	foodMap := make(map[string]food.Food, len(fetched))
	for _, f := range fetched {
		foodMap[f.ID] = f
	}

	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, line := range req.Items {
		f, ok := foodMap[line.FoodID]
		if !ok {
			return nil, &FoodNotFoundError{FoodID: line.FoodID}
		}
		lineTotal := f.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items[i] = Item{
			FoodID:     f.ID,
			FoodName:   f.Name,
			Quantity:   line.Quantity,
			Price:      f.Price,
			TotalPrice: lineTotal,
			FoodImage:  f.Image,
		}
		subtotal = subtotal.Add(lineTotal)
	}

	fee := req.DeliveryLocation.Fee()
	o := &Order{
		ID:               uuid.New().String(),
		Reference:        newReference(),
		Items:            items,
		Subtotal:         subtotal.Round(2),
		DeliveryFee:      fee,
		Total:            subtotal.Add(fee).Round(2),
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    initialPaymentStatus(req),
		Status:           StatusPending,
		ContactPhone:     req.ContactPhone,
		DeliveryLocation: req.DeliveryLocation,
		FullAddress:      req.FullAddress,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CreatedAt:        s.now().UTC(),
	}
	if req.PaymentMethod == PaymentOnline {
		o.PaymentTxRef = o.Reference
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	result := &PlaceOrderResult{Order: o}
	switch req.PaymentMethod {
	case PaymentOnline:
		charge, err := s.gateway.InitiateCharge(ctx, payment.ChargeRequest{
			TxRef:         o.Reference,
			Amount:        o.Total,
			Currency:      s.cfg.Currency,
			RedirectURL:   req.RedirectURL,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.ContactPhone,
			CustomerName:  req.CustomerName,
		})
		if err != nil {
			return nil, &ChargeInitError{OrderID: o.ID, Reference: o.Reference, Err: err}
		}
		result.PaymentLink = charge.PaymentLink
	case PaymentWhatsApp:
		result.WhatsAppLink = BuildWhatsAppLink(s.cfg.WhatsAppNumber, o)
	}

	return result, nil
}

// MarkPaid records a backend-verified payment for the order. The transition
// is monotonic: an already-paid order is left untouched.
func (s *Service) MarkPaid(ctx context.Context, orderID, txID string) error {
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, PaymentPaid, txID); err != nil {
		return fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	return nil
}

func (s *Service) validate(req PlaceOrderRequest) error {
	switch req.PaymentMethod {
	case PaymentOnline, PaymentWhatsApp, PaymentCash:
	default:
		return &ValidationError{Field: "paymentMethod", Message: "must be online, whatsapp or cash"}
	}
	if !req.DeliveryLocation.Valid() {
		return &ValidationError{Field: "deliveryLocation", Message: "unknown delivery location"}
	}
	if req.DeliveryLocation.RequiresAddress() && strings.TrimSpace(req.FullAddress) == "" {
		return &ValidationError{Field: "fullAddress", Message: "address is required for delivery"}
	}
	if !ValidPhone(req.ContactPhone) {
		return &ValidationError{Field: "contactPhone", Message: "invalid phone number"}
	}
	if !req.Authenticated {
		if strings.TrimSpace(req.CustomerName) == "" {
			return &ValidationError{Field: "customerName", Message: "name is required for guest checkout"}
		}
		if strings.TrimSpace(req.CustomerEmail) == "" {
			return &ValidationError{Field: "customerEmail", Message: "email is required for guest checkout"}
		}
	}
	if req.PaymentMethod == PaymentCash && req.InitialPaymentStatus != "" && !req.InitialPaymentStatus.Valid() {
		return &ValidationError{Field: "paymentStatus", Message: "unknown payment status"}
	}
	return nil
}

// initialPaymentStatus picks the starting payment state per channel: online
// orders are processing while the gateway confirms, whatsapp orders await
// manual settlement, and the cash variant honours the operator's choice.
func initialPaymentStatus(req PlaceOrderRequest) PaymentStatus {
	switch req.PaymentMethod {
	case PaymentOnline:
		return PaymentProcessing
	case PaymentCash:
		if req.InitialPaymentStatus != "" {
			return req.InitialPaymentStatus
		}
		return PaymentUnpaid
	default:
		return PaymentUnpaid
	}
}

// newReference generates an opaque public tracking reference.
func newReference() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:10])
}
