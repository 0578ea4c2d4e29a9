package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/order"
)

// TrackOrder is the public tracking read: the opaque reference is the only
// key, no authentication required. Lookup failures are terminal for the
// caller; nothing here retries.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		writeError(w, r, http.StatusBadRequest, "reference is required")
		return
	}

	o, err := h.orders.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Track order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	view := newOrderView(o)
	// The public tracking view does not leak the internal order id.
	view.OrderID = ""
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Order: view})
}
