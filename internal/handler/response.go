package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/order"
)

// orderView is the wire representation of an order used by every response
// that carries one. Track and status reads share this envelope.
type orderView struct {
	OrderID          string              `json:"orderId,omitempty"`
	Reference        string              `json:"orderReference"`
	Status           order.Status        `json:"status"`
	PaymentStatus    order.PaymentStatus `json:"paymentStatus"`
	PaymentMethod    order.PaymentMethod `json:"paymentMethod,omitempty"`
	Items            []order.Item        `json:"items"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	DeliveryFee      decimal.Decimal     `json:"deliveryFee"`
	Total            decimal.Decimal     `json:"total"`
	DeliveryLocation order.Location      `json:"deliveryLocation"`
	FullAddress      string              `json:"fullAddress,omitempty"`
	ContactPhone     string              `json:"contactPhone"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func newOrderView(o *order.Order) *orderView {
	return &orderView{
		OrderID:          o.ID,
		Reference:        o.Reference,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		PaymentMethod:    o.PaymentMethod,
		Items:            o.Items,
		Subtotal:         o.Subtotal,
		DeliveryFee:      o.DeliveryFee,
		Total:            o.Total,
		DeliveryLocation: o.DeliveryLocation,
		FullAddress:      o.FullAddress,
		ContactPhone:     o.ContactPhone,
		CreatedAt:        o.CreatedAt,
	}
}

// envelope is the {success, order?, error?} response shape of the public
// status and tracking reads.
type envelope struct {
	Success bool   `json:"success"`
	Order   any    `json:"order,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Warn("Encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, envelope{Success: false, Error: msg})
}
