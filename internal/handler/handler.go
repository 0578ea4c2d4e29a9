// Package handler exposes the public REST API: checkout, payment status,
// tracking, the food catalog, and the payment gateway webhook.
package handler

import (
	"context"
	"net/http"

	"github.com/savourly/orderflow/internal/domain/food"
	"github.com/savourly/orderflow/internal/domain/order"
	"github.com/savourly/orderflow/internal/payment"
)

// OrderStore is the order persistence surface the handlers need beyond the
// domain repository: webhook application looks orders up by gateway
// reference.
type OrderStore interface {
	order.Repository
	GetByTxRef(ctx context.Context, txRef string) (*order.Order, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WebhookSecret is the shared secret the gateway sends in the
	// verif-hash header on webhook deliveries.
	WebhookSecret string
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	cfg      Config
	foods    food.Repository
	checkout *order.Service
	orders   OrderStore
	gateway  payment.Gateway
	events   payment.EventRepository
	security *SecurityHandler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	foods food.Repository,
	checkout *order.Service,
	orders OrderStore,
	gateway payment.Gateway,
	events payment.EventRepository,
	security *SecurityHandler,
) *Handler {
	return &Handler{
		cfg:      cfg,
		foods:    foods,
		checkout: checkout,
		orders:   orders,
		gateway:  gateway,
		events:   events,
		security: security,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/foods", h.ListFoods)
	mux.HandleFunc("GET /api/foods/{id}", h.GetFood)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("POST /api/orders/bulk", h.CreateBulkOrder)
	mux.HandleFunc("GET /api/orders/{id}/status", h.OrderStatus)
	mux.Handle("PATCH /api/orders/{id}/payment", h.security.RequireStaff(http.HandlerFunc(h.PatchPayment)))

	mux.HandleFunc("GET /api/order/track", h.TrackOrder)

	mux.HandleFunc("POST /api/payments/webhook", h.PaymentWebhook)

	return mux
}
