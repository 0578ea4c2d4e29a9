package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/order"
	"github.com/savourly/orderflow/internal/payment"
)

// PaymentWebhook receives gateway payment notifications. Every authentic
// delivery is recorded before the order transition is attempted, so a
// captured charge is never lost even when the order row is not yet visible.
// The gateway's word alone is not trusted: the transaction is re-verified
// against the gateway API before the order is marked paid.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	if !payment.VerifyWebhookSignature(r.Header.Get("verif-hash"), []byte(h.cfg.WebhookSecret)) {
		writeError(w, r, http.StatusUnauthorized, "invalid signature")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read body")
		return
	}

	ev, err := payment.DecodeWebhook(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}

	record := &payment.Event{
		TxRef:         ev.TxRef,
		TransactionID: ev.TransactionID,
		Status:        ev.Status,
	}
	if err := h.events.Record(r.Context(), record); err != nil {
		lg.Error("Record payment event", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if !ev.Successful() {
		// Nothing to apply for failed/cancelled attempts; the order keeps
		// its prior payment state and the customer may retry.
		if err := h.events.MarkApplied(r.Context(), record.ID); err != nil {
			lg.Warn("Mark payment event applied", zap.Error(err))
		}
		writeJSON(w, r, http.StatusOK, envelope{Success: true})
		return
	}

	tx, err := h.gateway.VerifyTransaction(r.Context(), ev.TxRef)
	if err != nil || !tx.Successful() {
		lg.Warn("Webhook transaction did not verify",
			zap.String("tx_ref", ev.TxRef), zap.Error(err))
		writeJSON(w, r, http.StatusOK, envelope{Success: true})
		return
	}

	o, err := h.orders.GetByTxRef(r.Context(), ev.TxRef)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			// Payment captured, order pending: the event stays unapplied
			// for the reconcile sweep or a webhook re-delivery.
			lg.Warn("Verified payment for unknown order", zap.String("tx_ref", ev.TxRef))
			writeJSON(w, r, http.StatusOK, envelope{Success: true})
			return
		}
		lg.Error("Get order by tx_ref", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.checkout.MarkPaid(r.Context(), o.ID, ev.TxRef); err != nil {
		lg.Error("Mark order paid", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.events.MarkApplied(r.Context(), record.ID); err != nil {
		lg.Warn("Mark payment event applied", zap.Error(err))
	}

	writeJSON(w, r, http.StatusOK, envelope{Success: true})
}
