package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/order"
)

// orderRequestFields are the delivery/contact/payment fields shared by both
// creation shapes.
type orderRequestFields struct {
	PaymentMethod    order.PaymentMethod `json:"paymentMethod"`
	DeliveryLocation order.Location      `json:"deliveryLocation"`
	FullAddress      string              `json:"fullAddress"`
	ContactPhone     string              `json:"contactPhone"`
	CustomerName     string              `json:"customerName"`
	CustomerEmail    string              `json:"customerEmail"`
	RedirectURL      string              `json:"redirectUrl"`
	// PaymentStatus is honoured only for the staff cash variant.
	PaymentStatus order.PaymentStatus `json:"paymentStatus"`
}

// singleOrderRequest is the legacy single-item creation shape.
type singleOrderRequest struct {
	orderRequestFields
	FoodID   string `json:"foodId"`
	Quantity int    `json:"quantity"`
}

// bulkOrderRequest is the multi-item cart creation shape.
type bulkOrderRequest struct {
	orderRequestFields
	Items []bulkOrderItem `json:"items"`
}

type bulkOrderItem struct {
	FoodID   string `json:"foodId"`
	Quantity int    `json:"quantity"`
}

// orderCreatedResponse extends the envelope with the payment-channel
// artifacts of a fresh order.
type orderCreatedResponse struct {
	Success      bool       `json:"success"`
	Order        *orderView `json:"order"`
	PaymentLink  string     `json:"paymentLink,omitempty"`
	WhatsAppLink string     `json:"whatsappLink,omitempty"`
}

// CreateOrder handles the legacy single-item creation shape. The item is
// normalized into the canonical cart form at this boundary; the rest of the
// system only ever sees items[].
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req singleOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	h.placeOrder(w, r, order.PlaceOrderRequest{
		Items:                []order.ItemRequest{{FoodID: req.FoodID, Quantity: req.Quantity}},
		PaymentMethod:        req.PaymentMethod,
		DeliveryLocation:     req.DeliveryLocation,
		FullAddress:          req.FullAddress,
		ContactPhone:         req.ContactPhone,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		InitialPaymentStatus: req.PaymentStatus,
		RedirectURL:          req.RedirectURL,
	})
}

// CreateBulkOrder handles the multi-item cart shape.
func (h *Handler) CreateBulkOrder(w http.ResponseWriter, r *http.Request) {
	var req bulkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{FoodID: item.FoodID, Quantity: item.Quantity}
	}

	h.placeOrder(w, r, order.PlaceOrderRequest{
		Items:                items,
		PaymentMethod:        req.PaymentMethod,
		DeliveryLocation:     req.DeliveryLocation,
		FullAddress:          req.FullAddress,
		ContactPhone:         req.ContactPhone,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		InitialPaymentStatus: req.PaymentStatus,
		RedirectURL:          req.RedirectURL,
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, req order.PlaceOrderRequest) {
	// The cash variant is staff-only: the operator chooses the starting
	// payment state, which a public client must not be able to do.
	staff := h.security.Authenticate(r)
	if req.PaymentMethod == order.PaymentCash && !staff {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	req.Authenticated = staff

	result, err := h.checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		h.mapCheckoutError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, orderCreatedResponse{
		Success:      true,
		Order:        newOrderView(result.Order),
		PaymentLink:  result.PaymentLink,
		WhatsAppLink: result.WhatsAppLink,
	})
}

// mapCheckoutError converts checkout errors to HTTP responses. Validation
// problems never reach storage; charge initiation failures report the
// persisted order so the client can retry payment instead of re-ordering.
func (h *Handler) mapCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyCart) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, r, http.StatusBadRequest, vErr.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var fnfErr *order.FoodNotFoundError
	if errors.As(err, &fnfErr) {
		writeError(w, r, http.StatusUnprocessableEntity, fnfErr.Error())
		return
	}

	var ciErr *order.ChargeInitError
	if errors.As(err, &ciErr) {
		zctx.From(r.Context()).Warn("Charge initiation failed",
			zap.String("reference", ciErr.Reference), zap.Error(ciErr.Err))
		writeJSON(w, r, http.StatusBadGateway, envelope{
			Success: false,
			Error:   "payment initiation failed, retry with the order reference",
			Order:   map[string]string{"orderReference": ciErr.Reference, "orderId": ciErr.OrderID},
		})
		return
	}

	zctx.From(r.Context()).Error("Place order", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// OrderStatus is the public payment-status check polled during payment
// confirmation. No authentication: the order id is treated as a capability.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Get order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		Success: true,
		Order: map[string]any{
			"status":        o.Status,
			"paymentStatus": o.PaymentStatus,
		},
	})
}

type patchPaymentRequest struct {
	PaymentStatus order.PaymentStatus `json:"paymentStatus"`
	TransactionID string              `json:"transactionId"`
}

// PatchPayment lets staff adjust an order's payment status. Paid is final:
// attempts to move an order off paid are rejected as a conflict.
func (h *Handler) PatchPayment(w http.ResponseWriter, r *http.Request) {
	var req patchPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.PaymentStatus.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown payment status")
		return
	}

	id := r.PathValue("id")
	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Get order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if o.PaymentStatus == order.PaymentPaid && req.PaymentStatus != order.PaymentPaid {
		writeError(w, r, http.StatusConflict, "paid orders cannot regress")
		return
	}

	if err := h.orders.UpdatePaymentStatus(r.Context(), id, req.PaymentStatus, req.TransactionID); err != nil {
		zctx.From(r.Context()).Error("Update payment status", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	o.PaymentStatus = req.PaymentStatus
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Order: newOrderView(o)})
}
