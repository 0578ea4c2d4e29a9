package track

import (
	"fmt"

	"github.com/savourly/orderflow/internal/domain/order"
)

// Mismatch is a detected disagreement between a caller's belief about
// payment and the freshly fetched backend state. It is a warning, not an
// error: the backend is the source of truth and its value is what gets
// displayed.
type Mismatch struct {
	Believed order.PaymentStatus
	Actual   order.PaymentStatus
}

func (m *Mismatch) Warning() string {
	return fmt.Sprintf("payment status mismatch: expected %s, server reports %s", m.Believed, m.Actual)
}

// Reconcile compares the caller's belief against the fetched payment status.
// The returned status is always the fetched one. A non-nil Mismatch means
// the caller arrived believing the payment had settled (or the status
// regressed from an earlier paid observation) and should surface a warning.
func Reconcile(believedPaid bool, fetched order.PaymentStatus) (order.PaymentStatus, *Mismatch) {
	if believedPaid && fetched != order.PaymentPaid {
		return fetched, &Mismatch{Believed: order.PaymentPaid, Actual: fetched}
	}
	return fetched, nil
}

// Steps in the linear fulfillment progression shown to customers.
const ProgressSteps = 4

// ProgressStep maps a fulfillment status onto the 1-based linear
// pending -> preparing -> ready -> delivered progression. Cancelled sits
// outside the progression: ok is false and the caller renders it distinctly.
func ProgressStep(s order.Status) (step int, ok bool) {
	switch s {
	case order.StatusPending:
		return 1, true
	case order.StatusPreparing:
		return 2, true
	case order.StatusReady:
		return 3, true
	case order.StatusDelivered:
		return 4, true
	default:
		return 0, false
	}
}
